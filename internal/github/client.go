package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrTokenMissing is a configuration error; it is raised before any
	// request is attempted and must stop startup.
	ErrTokenMissing = errors.New("github token is not configured")

	// ErrRemoteUnavailable wraps connection-level failures (timeout, DNS,
	// TLS). HTTP-level rejections are not wrapped with it.
	ErrRemoteUnavailable = errors.New("github api unreachable")
)

const DefaultMaxConcurrency = 5

// Client is a thin wrapper around the GitHub REST API, authenticated with
// a bearer token and bounded by a per-request timeout.
type Client struct {
	http   *http.Client
	apiUrl string
}

func NewClient(token string, apiUrl string, timeout time.Duration) (*Client, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = timeout

	return &Client{
		http:   httpClient,
		apiUrl: strings.TrimSuffix(apiUrl, "/"),
	}, nil
}

// ListGists fetches the summaries of a user's public gists. A connection
// failure is returned wrapped in ErrRemoteUnavailable; an HTTP rejection or
// an unparsable body is logged and surfaced as an empty listing, since the
// API being reachable but unhelpful is an expected condition.
func (c *Client) ListGists(username string) ([]GistSummary, error) {
	resp, err := c.http.Get(c.apiUrl + "/users/" + url.PathEscape(username) + "/gists")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().Msgf("Failed to list gists for user %s: HTTP %d", username, resp.StatusCode)
		return nil, nil
	}

	var summaries []GistSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		log.Warn().Err(err).Msgf("Failed to decode gist listing for user %s", username)
		return nil, nil
	}

	return summaries, nil
}

// FetchGist fetches a single gist by id, with file contents populated.
func (c *Client) FetchGist(id string) (*GistDetail, error) {
	resp, err := c.http.Get(c.apiUrl + "/gists/" + url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching gist %s: HTTP %d", id, resp.StatusCode)
	}

	detail := new(GistDetail)
	if err := json.NewDecoder(resp.Body).Decode(detail); err != nil {
		return nil, fmt.Errorf("decoding gist %s: %w", id, err)
	}

	return detail, nil
}

// FetchGistsConcurrently fetches gists in chunks of maxConcurrency. Each
// chunk's requests run concurrently and the whole chunk is awaited before
// the next one starts. A failed fetch is logged and skipped; it never
// aborts its chunk or the chunks after it.
func (c *Client) FetchGistsConcurrently(ids []string, maxConcurrency int) []GistDetail {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}

	var all []GistDetail
	for chunk := range slices.Chunk(ids, maxConcurrency) {
		results := make([]*GistDetail, len(chunk))

		var g errgroup.Group
		for i, id := range chunk {
			g.Go(func() error {
				detail, err := c.FetchGist(id)
				if err != nil {
					log.Warn().Err(err).Msgf("Failed to fetch gist %s", id)
					return nil
				}
				results[i] = detail
				return nil
			})
		}
		_ = g.Wait()

		for _, detail := range results {
			if detail != nil {
				all = append(all, *detail)
			}
		}
	}

	return all
}
