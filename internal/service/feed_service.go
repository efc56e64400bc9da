// Package service provides the data-fetch orchestration consumed by views.
package service

import (
	"context"

	"glasswing/internal/models"
	"glasswing/internal/repository"
)

// FeedPage is one page of the home feed.
type FeedPage struct {
	Posts []models.Post
	// NextCursor is the keyset cursor for the following page; zero when
	// this page exhausted the feed.
	NextCursor repository.FeedCursor
}

// FeedService fetches the home feed, newest first, joined with the owning
// profile, paginated by a (created_at, id) keyset cursor.
type FeedService struct {
	posts    repository.PostRepository
	pageSize int
}

// NewFeedService returns a FeedService with the given page size.
func NewFeedService(posts repository.PostRepository, pageSize int) *FeedService {
	if pageSize <= 0 {
		pageSize = 25
	}
	return &FeedService{posts: posts, pageSize: pageSize}
}

// Fetch returns the page of posts older than cursor. A zero cursor starts
// from the newest post.
func (s *FeedService) Fetch(ctx context.Context, cursor repository.FeedCursor) (*FeedPage, error) {
	posts, err := s.posts.Feed(ctx, cursor, s.pageSize)
	if err != nil {
		return nil, err
	}

	page := &FeedPage{Posts: posts}
	if len(posts) == s.pageSize {
		last := posts[len(posts)-1]
		page.NextCursor = repository.FeedCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return page, nil
}
