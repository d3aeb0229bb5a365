package web

import (
	"errors"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"github.com/thomiceli/gistfeed/internal/config"
	"github.com/thomiceli/gistfeed/internal/db"
	"gorm.io/gorm"
)

const pageSize = 20

type gistJson struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Language    string    `json:"language,omitempty"`
	Content     string    `json:"content,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	CachedAt    time.Time `json:"cached_at"`
	Cached      string    `json:"cached"`
}

func toGistJson(gist *db.Gist, withContent bool) gistJson {
	g := gistJson{
		ID:          gist.GithubID,
		Username:    gist.Username,
		Title:       gist.Title,
		Description: gist.Description,
		Language:    gist.Language,
		CreatedAt:   gist.GithubCreatedAt,
		CachedAt:    gist.CachedAt,
		Cached:      humanize.Time(gist.CachedAt),
	}
	if withContent {
		g.Content = gist.Content
	}
	return g
}

func groupByUsername(gists []*db.Gist) map[string][]gistJson {
	grouped := make(map[string][]gistJson)
	for _, gist := range gists {
		grouped[gist.Username] = append(grouped[gist.Username], toGistJson(gist, false))
	}
	return grouped
}

func (s *Server) index(ctx echo.Context) error {
	recent, err := db.GetRecentGists(pageSize)
	if err != nil {
		return echo.NewHTTPError(500, "Cannot load recent gists").SetInternal(err)
	}

	return ctx.JSON(200, echo.Map{
		"gists":         groupByUsername(recent),
		"example_users": config.C.ExampleUsers,
	})
}

// userGists serves whatever is cached for a user and, when that data is
// stale or absent, triggers a background refresh. The read never waits on
// the network; a first visit gets an empty list with loading set.
func (s *Server) userGists(ctx echo.Context) error {
	username := ctx.Param("username")
	if err := s.validator.Var(username, "required,githubusername"); err != nil {
		return echo.NewHTTPError(400, "Invalid username")
	}

	gists, err := db.GetGistsForUser(username)
	if err != nil {
		return echo.NewHTTPError(500, "Cannot load gists").SetInternal(err)
	}

	refreshing := s.syncer.EnsureFresh(username)

	list := make([]gistJson, 0, len(gists))
	for _, gist := range gists {
		list = append(list, toGistJson(gist, false))
	}

	return ctx.JSON(200, echo.Map{
		"username":   username,
		"loading":    len(gists) == 0,
		"refreshing": refreshing,
		"gists":      list,
	})
}

func (s *Server) gist(ctx echo.Context) error {
	username := ctx.Param("username")
	if err := s.validator.Var(username, "required,githubusername"); err != nil {
		return echo.NewHTTPError(400, "Invalid username")
	}

	gist, err := db.GetGist(username, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(404, "Gist not found")
		}
		return echo.NewHTTPError(500, "Cannot load gist").SetInternal(err)
	}

	return ctx.JSON(200, toGistJson(gist, true))
}

func (s *Server) search(ctx echo.Context) error {
	username := ctx.QueryParam("username")
	language := ctx.QueryParam("language")

	gists, err := db.SearchGists(username, language, pageSize)
	if err != nil {
		return echo.NewHTTPError(500, "Cannot search gists").SetInternal(err)
	}

	languages, err := db.GetDistinctLanguages()
	if err != nil {
		return echo.NewHTTPError(500, "Cannot load languages").SetInternal(err)
	}

	return ctx.JSON(200, echo.Map{
		"gists":     groupByUsername(gists),
		"languages": languages,
	})
}

func (s *Server) healthcheck(ctx echo.Context) error {
	// Check database connection
	dbOk := "ok"
	httpStatus := 200

	err := db.Ping()
	if err != nil {
		dbOk = "ko"
		httpStatus = 503
	}

	return ctx.JSON(httpStatus, map[string]interface{}{
		"gistfeed": "ok",
		"database": dbOk,
		"time":     time.Now().Format(time.RFC3339),
	})
}
