package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasswing/internal/models"
	"glasswing/internal/storage"
)

func signedIn(id string) *stubActor {
	return &stubActor{identity: &models.Identity{ID: id, Email: "jane@example.com"}}
}

func TestSubmitEmptyDraftFailsBeforeUploads(t *testing.T) {
	posts := newStubPosts()
	uploader := &stubUploader{}
	svc := NewPostService(posts, uploader, signedIn("u1"), Buckets{})

	_, err := svc.Submit(context.Background(), Draft{Text: "   "})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
	assert.Zero(t, uploader.uploadCount(), "validation must run before any upload")
	assert.Zero(t, posts.callCount("Create"))
}

func TestSubmitRequiresAuth(t *testing.T) {
	posts := newStubPosts()
	uploader := &stubUploader{}
	svc := NewPostService(posts, uploader, &stubActor{}, Buckets{})

	_, err := svc.Submit(context.Background(), Draft{Text: "hello"})
	require.Error(t, err)
	assert.True(t, models.IsAuthRequired(err))
	assert.Zero(t, uploader.uploadCount())
}

func TestSubmitStoresBarePaths(t *testing.T) {
	posts := newStubPosts()
	var created *models.Post
	posts.createFn = func(p *models.Post) (*models.Post, error) {
		copied := *p
		copied.ID = "p1"
		created = &copied
		return &copied, nil
	}
	uploader := &stubUploader{}
	svc := NewPostService(posts, uploader, signedIn("u1"), Buckets{Images: "images", Videos: "videos"})

	video := storage.File{Name: "clip.mp4", Content: []byte("v")}
	outcome, err := svc.Submit(context.Background(), Draft{
		Text:   "beach day",
		Images: []storage.File{{Name: "a.png", Content: []byte("x")}, {Name: "b.png", Content: []byte("y")}},
		Video:  &video,
	})
	require.NoError(t, err)
	require.NotNil(t, outcome.Post)
	assert.Empty(t, outcome.Failed())

	require.NotNil(t, created)
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, []string{"u1/a.png", "u1/b.png"}, created.Images)
	require.NotNil(t, created.Video)
	assert.Equal(t, "u1/clip.mp4", *created.Video)
}

func TestSubmitPartialMediaFailureStillPosts(t *testing.T) {
	posts := newStubPosts()
	uploader := &stubUploader{failures: map[string]error{"bad.png": errors.New("upload rejected")}}
	svc := NewPostService(posts, uploader, signedIn("u1"), Buckets{})

	outcome, err := svc.Submit(context.Background(), Draft{
		Text:   "two of three",
		Images: []storage.File{{Name: "a.png", Content: []byte("x")}, {Name: "bad.png", Content: []byte("y")}},
	})
	require.NoError(t, err)
	require.NotNil(t, outcome.Post)
	assert.Equal(t, []string{"u1/a.png"}, outcome.Post.Images)
	require.Len(t, outcome.Failed(), 1)
	assert.Equal(t, "bad.png", outcome.Failed()[0].Name)
}

func TestSubmitAllMediaFailedNoText(t *testing.T) {
	posts := newStubPosts()
	wantErr := errors.New("upload rejected")
	uploader := &stubUploader{failures: map[string]error{"a.png": wantErr}}
	svc := NewPostService(posts, uploader, signedIn("u1"), Buckets{})

	outcome, err := svc.Submit(context.Background(), Draft{
		Images: []storage.File{{Name: "a.png", Content: []byte("x")}},
	})
	require.ErrorIs(t, err, wantErr)
	assert.Nil(t, outcome.Post)
	assert.Zero(t, posts.callCount("Create"), "nothing left worth posting")
}

func TestSubmitCleansUpMediaWhenInsertFails(t *testing.T) {
	posts := newStubPosts()
	posts.createFn = func(*models.Post) (*models.Post, error) {
		return nil, errors.New("insert rejected")
	}
	uploader := &stubUploader{}
	svc := NewPostService(posts, uploader, signedIn("u1"), Buckets{})

	video := storage.File{Name: "clip.mp4", Content: []byte("v")}
	_, err := svc.Submit(context.Background(), Draft{
		Text:   "doomed",
		Images: []storage.File{{Name: "a.png", Content: []byte("x")}},
		Video:  &video,
	})
	require.Error(t, err)

	// The orphaned media is removed.
	assert.ElementsMatch(t, []string{"u1/a.png", "u1/clip.mp4"}, uploader.deleted)
}

func TestSubmitRejectsOverlappingSubmission(t *testing.T) {
	posts := newStubPosts()
	entered := make(chan struct{})
	release := make(chan struct{})
	uploader := &stubUploader{uploadEntered: entered, uploadRelease: release}
	svc := NewPostService(posts, uploader, signedIn("u1"), Buckets{})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), Draft{
			Text:   "first",
			Images: []storage.File{{Name: "a.png", Content: []byte("x")}},
		})
		done <- err
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first submission never reached the upload")
	}

	// The first submission is parked mid-upload; a second one must refuse
	// instead of creating a duplicate post.
	_, err := svc.Submit(context.Background(), Draft{Text: "second"})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, posts.callCount("Create"))

	// Once settled, submissions are accepted again.
	_, err = svc.Submit(context.Background(), Draft{Text: "third"})
	require.NoError(t, err)
}

func TestDeleteOwnPostCleansMedia(t *testing.T) {
	posts := newStubPosts()
	uploader := &stubUploader{}
	svc := NewPostService(posts, uploader, signedIn("u1"), Buckets{})

	video := "u1/clip.mp4"
	post := &models.Post{ID: "p1", UserID: "u1", Images: []string{"u1/a.png"}, Video: &video}
	require.NoError(t, svc.Delete(context.Background(), post))

	assert.Equal(t, []string{"p1"}, posts.deleted)
	assert.ElementsMatch(t, []string{"u1/a.png", "u1/clip.mp4"}, uploader.deleted)
}

func TestDeleteSomeoneElsesPostRejected(t *testing.T) {
	posts := newStubPosts()
	svc := NewPostService(posts, &stubUploader{}, signedIn("u1"), Buckets{})

	err := svc.Delete(context.Background(), &models.Post{ID: "p1", UserID: "u2"})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
	assert.Empty(t, posts.deleted)
}
