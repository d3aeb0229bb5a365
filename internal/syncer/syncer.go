package syncer

import (
	"errors"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/thomiceli/gistfeed/internal/db"
	"github.com/thomiceli/gistfeed/internal/github"
)

const (
	CacheTTL              = 4 * time.Hour
	ClaimTTL              = 5 * time.Minute
	BatchSize             = 20
	MaxConcurrentRequests = 5
)

// IsStale reports whether a cached record's age has reached the TTL.
func IsStale(cachedAt time.Time, now time.Time, ttl time.Duration) bool {
	return !cachedAt.Add(ttl).After(now)
}

// KV is the ephemeral key-value capability used for the list-response
// cache.
type KV interface {
	Get(key string) (any, bool)
	Put(key string, value any, ttl time.Duration) error
	Forget(key string) error
}

// ClaimTable prevents more than one in-flight refresh per username.
type ClaimTable interface {
	TryClaim(username string, ttl time.Duration) bool
	Release(username string)
}

// TaskQueue accepts fire-and-forget refresh tasks, delivered at least
// once with no ordering guarantee across usernames.
type TaskQueue interface {
	Enqueue(username string)
}

// Syncer mirrors a user's gists from the GitHub API into the local store.
// It serves whatever is cached immediately and refreshes in the
// background; the claim table is the only thing preventing overlapping
// refreshes for the same username.
type Syncer struct {
	client *github.Client
	kv     KV
	claims ClaimTable
	queue  TaskQueue

	CacheTTL              time.Duration
	ClaimTTL              time.Duration
	BatchSize             int
	MaxConcurrentRequests int
}

func NewSyncer(client *github.Client, kv KV, claims ClaimTable, queue TaskQueue) *Syncer {
	return &Syncer{
		client: client,
		kv:     kv,
		claims: claims,
		queue:  queue,

		CacheTTL:              CacheTTL,
		ClaimTTL:              ClaimTTL,
		BatchSize:             BatchSize,
		MaxConcurrentRequests: MaxConcurrentRequests,
	}
}

// EnsureFresh enqueues a background refresh when the user's cached data is
// stale or absent, unless a refresh is already in flight. It returns true
// when a refresh was enqueued. Concurrent calls for the same username are
// collapsed to a single enqueue by the claim table.
func (s *Syncer) EnsureFresh(username string) bool {
	latest, err := db.GetLatestGistForUser(username)
	if err != nil {
		log.Error().Err(err).Msgf("Cannot check cache freshness for user %s", username)
		return false
	}

	if latest != nil && !IsStale(latest.CachedAt, time.Now(), s.CacheTTL) {
		return false
	}

	if !s.claims.TryClaim(username, s.ClaimTTL) {
		return false
	}

	s.queue.Enqueue(username)
	return true
}

// HandleTask is the queue consumer entry point. The claim taken by
// EnsureFresh is released on both success and failure; retrying is the
// queue's concern.
func (s *Syncer) HandleTask(username string) error {
	defer s.claims.Release(username)
	return s.SyncUser(username)
}

// SyncUser lists a user's gists, fetches the missing or stale ones in
// bounded concurrent batches, and upserts the results transactionally in
// batches. A batch failing to commit does not roll back or stop the
// others; partial success is accepted and visible.
func (s *Syncer) SyncUser(username string) error {
	summaries := s.listGists(username)
	if len(summaries) == 0 {
		return nil
	}

	existing, err := db.GetSyncStates(username)
	if err != nil {
		syncsTotal.WithLabelValues("error").Inc()
		return err
	}

	now := time.Now()
	var ids []string
	for _, summary := range summaries {
		cachedAt, ok := existing[summary.ID]
		if !ok || IsStale(cachedAt, now, s.CacheTTL) {
			ids = append(ids, summary.ID)
		}
	}

	details := s.client.FetchGistsConcurrently(ids, s.MaxConcurrentRequests)
	gistsFetchedTotal.Add(float64(len(details)))
	fetchFailuresTotal.Add(float64(len(ids) - len(details)))

	var errs []error
	for batch := range slices.Chunk(details, s.BatchSize) {
		gists := make([]*db.Gist, 0, len(batch))
		batchedAt := time.Now()
		for i := range batch {
			gists = append(gists, recordFromDetail(username, &batch[i], batchedAt))
		}

		if err := db.UpsertGistBatch(gists); err != nil {
			log.Error().Err(err).Msgf("Failed to upsert a batch of %d gists for user %s", len(gists), username)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		syncsTotal.WithLabelValues("error").Inc()
		return errors.Join(errs...)
	}

	syncsTotal.WithLabelValues("success").Inc()
	return nil
}

// listGists returns the user's gist summaries, served from the list cache
// when present. Connection failures are treated as "no data this round"
// and are not cached, so the next trigger retries.
func (s *Syncer) listGists(username string) []github.GistSummary {
	key := "gists." + username

	if v, ok := s.kv.Get(key); ok {
		if summaries, ok := v.([]github.GistSummary); ok {
			return summaries
		}
	}

	summaries, err := s.client.ListGists(username)
	if err != nil {
		log.Warn().Err(err).Msgf("GitHub API connection error for user %s", username)
		return nil
	}

	if err := s.kv.Put(key, summaries, s.CacheTTL); err != nil {
		log.Warn().Err(err).Msgf("Cannot cache gist listing for user %s", username)
	}

	return summaries
}

// recordFromDetail maps a fetched gist onto its local row. The gist is
// titled after its first file in provider order, defaulting to "Untitled"
// when it has none.
func recordFromDetail(username string, detail *github.GistDetail, now time.Time) *db.Gist {
	title := "Untitled"
	var content, language string
	if len(detail.Files) > 0 {
		first := detail.Files[0]
		if first.Filename != "" {
			title = first.Filename
		}
		content = first.Content
		language = first.Language
	}

	return &db.Gist{
		GithubID:        detail.ID,
		Username:        username,
		Title:           title,
		Content:         content,
		Language:        language,
		Description:     detail.Description,
		GithubCreatedAt: detail.CreatedAt,
		CachedAt:        now,
	}
}
