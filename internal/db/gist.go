package db

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gist is a local mirror of a remote GitHub gist, denormalized to its
// first file. A row only exists after at least one successful sync.
type Gist struct {
	ID              uint   `gorm:"primaryKey"`
	GithubID        string `gorm:"uniqueIndex"`
	Username        string `gorm:"index:idx_gists_username_cached_at"`
	Title           string
	Content         string
	Language        string
	Description     string
	GithubCreatedAt time.Time
	CachedAt        time.Time `gorm:"index:idx_gists_username_cached_at"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SyncState is the minimal projection used to decide whether a gist
// needs a full re-fetch.
type SyncState struct {
	GithubID string
	CachedAt time.Time
}

func GetGist(username string, githubId string) (*Gist, error) {
	gist := new(Gist)
	err := db.
		Where("github_id = ? AND username = ?", githubId, username).
		First(&gist).Error

	return gist, err
}

func GetGistsForUser(username string) ([]*Gist, error) {
	var gists []*Gist
	err := db.
		Where("username = ?", username).
		Order("github_created_at desc").
		Find(&gists).Error

	return gists, err
}

// GetLatestGistForUser returns the most recently created cached gist for a
// user, or nil if the user has never been synced.
func GetLatestGistForUser(username string) (*Gist, error) {
	gist := new(Gist)
	err := db.
		Where("username = ?", username).
		Order("github_created_at desc").
		First(&gist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	return gist, err
}

// GetSyncStates loads the (github_id, cached_at) pairs of all gists cached
// for a user, keyed by github id.
func GetSyncStates(username string) (map[string]time.Time, error) {
	var states []SyncState
	err := db.Model(&Gist{}).
		Select("github_id", "cached_at").
		Where("username = ?", username).
		Find(&states).Error
	if err != nil {
		return nil, err
	}

	byId := make(map[string]time.Time, len(states))
	for _, state := range states {
		byId[state.GithubID] = state.CachedAt
	}

	return byId, nil
}

// UpsertGistBatch inserts or updates a batch of gists by github id inside a
// single transaction. Either the whole batch is persisted or none of it is.
func UpsertGistBatch(gists []*Gist) error {
	if len(gists) == 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, gist := range gists {
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "github_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"username", "title", "content", "language", "description",
					"github_created_at", "cached_at", "updated_at",
				}),
			}).Create(gist).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func GetRecentGists(limit int) ([]*Gist, error) {
	var gists []*Gist
	err := db.
		Order("github_created_at desc").
		Limit(limit).
		Find(&gists).Error

	return gists, err
}

// SearchGists filters cached gists by username substring and/or exact
// language, most recent first.
func SearchGists(username string, language string, limit int) ([]*Gist, error) {
	query := db.Model(&Gist{})
	if username != "" {
		query = query.Where("username LIKE ?", "%"+username+"%")
	}
	if language != "" {
		query = query.Where("language = ?", language)
	}

	var gists []*Gist
	err := query.
		Order("github_created_at desc").
		Limit(limit).
		Find(&gists).Error

	return gists, err
}

func GetDistinctLanguages() ([]string, error) {
	var languages []string
	err := db.Model(&Gist{}).
		Distinct("language").
		Where("language <> ''").
		Order("language asc").
		Pluck("language", &languages).Error

	return languages, err
}
