package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasswing/internal/models"
	"glasswing/internal/repository"
)

func TestFeedFirstPageSetsCursor(t *testing.T) {
	fixture := makePosts(5)
	posts := newStubPosts()
	var gotCursor repository.FeedCursor
	var gotLimit int
	posts.feedFn = func(cursor repository.FeedCursor, limit int) ([]models.Post, error) {
		gotCursor, gotLimit = cursor, limit
		return fixture, nil
	}

	svc := NewFeedService(posts, 5)
	page, err := svc.Fetch(context.Background(), repository.FeedCursor{})
	require.NoError(t, err)

	assert.True(t, gotCursor.Zero(), "first page starts from the newest post")
	assert.Equal(t, 5, gotLimit)
	assert.Equal(t, fixture, page.Posts)
	last := fixture[4]
	assert.Equal(t, repository.FeedCursor{CreatedAt: last.CreatedAt, ID: last.ID}, page.NextCursor,
		"cursor is the oldest post of a full page, timestamp plus id")
}

func TestFeedCursorCarriesTieBreaker(t *testing.T) {
	// A burst of posts sharing one timestamp: the boundary cursor must
	// still identify the exact row so the next page resumes after it.
	burst := makePosts(3)
	stamp := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := range burst {
		burst[i].CreatedAt = stamp
	}
	posts := newStubPosts()
	posts.feedFn = func(repository.FeedCursor, int) ([]models.Post, error) { return burst, nil }

	page, err := NewFeedService(posts, 3).Fetch(context.Background(), repository.FeedCursor{})
	require.NoError(t, err)
	assert.Equal(t, stamp, page.NextCursor.CreatedAt)
	assert.Equal(t, burst[2].ID, page.NextCursor.ID)
}

func TestFeedShortPageExhaustsFeed(t *testing.T) {
	posts := newStubPosts()
	posts.feedFn = func(repository.FeedCursor, int) ([]models.Post, error) {
		return makePosts(3), nil
	}

	svc := NewFeedService(posts, 5)
	page, err := svc.Fetch(context.Background(), repository.FeedCursor{})
	require.NoError(t, err)
	assert.Len(t, page.Posts, 3)
	assert.True(t, page.NextCursor.Zero(), "a short page means no further pages")
}

func TestFeedThreadsCursorThrough(t *testing.T) {
	posts := newStubPosts()
	var cursors []repository.FeedCursor
	posts.feedFn = func(cursor repository.FeedCursor, _ int) ([]models.Post, error) {
		cursors = append(cursors, cursor)
		return makePosts(2), nil
	}

	svc := NewFeedService(posts, 2)
	page1, err := svc.Fetch(context.Background(), repository.FeedCursor{})
	require.NoError(t, err)
	require.False(t, page1.NextCursor.Zero())

	_, err = svc.Fetch(context.Background(), page1.NextCursor)
	require.NoError(t, err)

	require.Len(t, cursors, 2)
	assert.Equal(t, page1.NextCursor, cursors[1], "the next fetch resumes at the returned cursor")
}

func TestFeedError(t *testing.T) {
	posts := newStubPosts()
	wantErr := errors.New("backend down")
	posts.feedFn = func(repository.FeedCursor, int) ([]models.Post, error) { return nil, wantErr }

	page, err := NewFeedService(posts, 5).Fetch(context.Background(), repository.FeedCursor{})
	require.ErrorIs(t, err, wantErr)
	assert.Nil(t, page)
}

func TestFeedDefaultsPageSize(t *testing.T) {
	posts := newStubPosts()
	var gotLimit int
	posts.feedFn = func(_ repository.FeedCursor, limit int) ([]models.Post, error) {
		gotLimit = limit
		return nil, nil
	}

	_, err := NewFeedService(posts, 0).Fetch(context.Background(), repository.FeedCursor{})
	require.NoError(t, err)
	assert.Equal(t, 25, gotLimit)
}
