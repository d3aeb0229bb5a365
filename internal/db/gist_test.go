package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/thomiceli/gistfeed/internal/config"
)

func setup(t *testing.T) {
	err := config.InitConfig("")
	require.NoError(t, err, "Could not init config")

	err = Setup(":memory:")
	require.NoError(t, err, "Could not init database")
}

func teardown(t *testing.T) {
	require.NoError(t, TruncateDatabase(), "Could not truncate database")
	require.NoError(t, Close(), "Could not close database")
}

func makeGist(githubId, username string, createdAt, cachedAt time.Time) *Gist {
	return &Gist{
		GithubID:        githubId,
		Username:        username,
		Title:           githubId + ".py",
		Content:         "print(1)",
		Language:        "Python",
		Description:     "a gist",
		GithubCreatedAt: createdAt,
		CachedAt:        cachedAt,
	}
}

func TestUpsertCreatesAndUpdates(t *testing.T) {
	setup(t)
	defer teardown(t)

	now := time.Now()
	gist := makeGist("g1", "thomas", now.Add(-time.Hour), now)
	require.NoError(t, UpsertGistBatch([]*Gist{gist}))

	count, err := CountAll(&Gist{})
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	// same github id, new content: must update in place, not duplicate
	later := now.Add(time.Minute)
	updated := makeGist("g1", "thomas", now.Add(-time.Hour), later)
	updated.Content = "print(2)"
	require.NoError(t, UpsertGistBatch([]*Gist{updated}))

	count, err = CountAll(&Gist{})
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	stored, err := GetGist("thomas", "g1")
	require.NoError(t, err)
	require.Equal(t, "print(2)", stored.Content)
	require.WithinDuration(t, later, stored.CachedAt, time.Second)
	require.False(t, stored.CachedAt.Before(now.Add(-time.Second)))
}

func TestGetGistsForUserOrder(t *testing.T) {
	setup(t)
	defer teardown(t)

	now := time.Now()
	require.NoError(t, UpsertGistBatch([]*Gist{
		makeGist("old", "thomas", now.Add(-48*time.Hour), now),
		makeGist("new", "thomas", now.Add(-time.Hour), now),
		makeGist("other", "someone", now, now),
	}))

	gists, err := GetGistsForUser("thomas")
	require.NoError(t, err)
	require.Len(t, gists, 2)
	require.Equal(t, "new", gists[0].GithubID)
	require.Equal(t, "old", gists[1].GithubID)

	latest, err := GetLatestGistForUser("thomas")
	require.NoError(t, err)
	require.Equal(t, "new", latest.GithubID)

	latest, err = GetLatestGistForUser("nobody")
	require.NoError(t, err)
	require.Nil(t, latest)
}

func TestGetSyncStates(t *testing.T) {
	setup(t)
	defer teardown(t)

	now := time.Now()
	cachedAt := now.Add(-2 * time.Hour)
	require.NoError(t, UpsertGistBatch([]*Gist{
		makeGist("g1", "thomas", now, cachedAt),
		makeGist("g2", "thomas", now, now),
		makeGist("g3", "someone", now, now),
	}))

	states, err := GetSyncStates("thomas")
	require.NoError(t, err)
	require.Len(t, states, 2)
	require.WithinDuration(t, cachedAt, states["g1"], time.Second)
	require.WithinDuration(t, now, states["g2"], time.Second)
	require.NotContains(t, states, "g3")
}

func TestSearchGists(t *testing.T) {
	setup(t)
	defer teardown(t)

	now := time.Now()
	ruby := makeGist("g2", "thomas", now, now)
	ruby.Language = "Ruby"
	untyped := makeGist("g3", "thomdoe", now, now)
	untyped.Language = ""
	require.NoError(t, UpsertGistBatch([]*Gist{
		makeGist("g1", "thomas", now, now),
		ruby,
		untyped,
	}))

	gists, err := SearchGists("thom", "", 20)
	require.NoError(t, err)
	require.Len(t, gists, 3)

	gists, err = SearchGists("thomas", "Ruby", 20)
	require.NoError(t, err)
	require.Len(t, gists, 1)
	require.Equal(t, "g2", gists[0].GithubID)

	languages, err := GetDistinctLanguages()
	require.NoError(t, err)
	require.Equal(t, []string{"Python", "Ruby"}, languages)
}

func TestUpsertEmptyBatch(t *testing.T) {
	setup(t)
	defer teardown(t)

	require.NoError(t, UpsertGistBatch(nil))

	count, err := CountAll(&Gist{})
	require.NoError(t, err)
	require.EqualValues(t, 0, count)
}
