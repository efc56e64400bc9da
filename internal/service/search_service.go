package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"glasswing/internal/models"
	"glasswing/internal/repository"
)

// SearchResults holds the two independent search queries' outcomes. Users
// and posts load, fail, and empty-state independently of each other.
type SearchResults struct {
	Query      string
	Profiles   []models.Profile
	Posts      []models.Post
	ProfileErr error
	PostErr    error
}

// SearchService runs debounced substring search over profiles and posts.
type SearchService struct {
	profiles repository.ProfileRepository
	posts    repository.PostRepository
	limit    int

	window time.Duration
	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
}

// NewSearchService returns a SearchService debounced by window.
func NewSearchService(profiles repository.ProfileRepository, posts repository.PostRepository, window time.Duration) *SearchService {
	return &SearchService{
		profiles: profiles,
		posts:    posts,
		limit:    20,
		window:   window,
	}
}

// Search runs both queries immediately. Profiles match when the username
// or full name contains the query case-insensitively; posts match on
// their text. An empty query yields empty results without a fetch.
func (s *SearchService) Search(ctx context.Context, query string) *SearchResults {
	results := &SearchResults{Query: query}
	query = strings.TrimSpace(query)
	if query == "" {
		return results
	}

	results.Profiles, results.ProfileErr = s.profiles.Search(ctx, query, s.limit)
	results.Posts, results.PostErr = s.posts.Search(ctx, query, s.limit)
	return results
}

// Submit schedules a search for query, delivering results to deliver once
// the debounce window elapses with no newer submission. A newer keystroke
// supersedes the pending one and cancels an in-flight query's context, so
// stale responses never overwrite fresher ones.
func (s *SearchService) Submit(ctx context.Context, query string, deliver func(*SearchResults)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	s.timer = time.AfterFunc(s.window, func() {
		s.mu.Lock()
		queryCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.mu.Unlock()

		results := s.Search(queryCtx, query)

		// A cancelled context means this search was superseded mid-flight;
		// its results must not reach the view.
		if queryCtx.Err() != nil {
			return
		}
		deliver(results)
	})
}

// Close cancels any pending or in-flight search.
func (s *SearchService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
