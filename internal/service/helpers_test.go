package service

import (
	"context"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"glasswing/internal/models"
	"glasswing/internal/repository"
	"glasswing/internal/storage"
)

// Hand-written doubles for the repository interfaces the services consume.
// Behavior is injected per test through the Fn fields; nil Fns answer
// empty without error. Calls are counted so tests can assert what was and
// was not fetched.

type stubPosts struct {
	mu    sync.Mutex
	calls map[string]int

	feedFn     func(cursor repository.FeedCursor, limit int) ([]models.Post, error)
	listFn     func(userID string) ([]models.Post, error)
	mediaFn    func(userID string) ([]models.Post, error)
	getByIDsFn func(ids []string) ([]models.Post, error)
	searchFn   func(query string, limit int) ([]models.Post, error)
	createFn   func(p *models.Post) (*models.Post, error)
	deleted    []string
}

func newStubPosts() *stubPosts { return &stubPosts{calls: make(map[string]int)} }

func (s *stubPosts) record(op string) {
	s.mu.Lock()
	s.calls[op]++
	s.mu.Unlock()
}

func (s *stubPosts) callCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *stubPosts) Feed(_ context.Context, cursor repository.FeedCursor, limit int) ([]models.Post, error) {
	s.record("Feed")
	if s.feedFn == nil {
		return nil, nil
	}
	return s.feedFn(cursor, limit)
}

func (s *stubPosts) ListByUser(_ context.Context, userID string) ([]models.Post, error) {
	s.record("ListByUser")
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(userID)
}

func (s *stubPosts) ListMediaByUser(_ context.Context, userID string) ([]models.Post, error) {
	s.record("ListMediaByUser")
	if s.mediaFn == nil {
		return nil, nil
	}
	return s.mediaFn(userID)
}

func (s *stubPosts) GetByIDs(_ context.Context, ids []string) ([]models.Post, error) {
	s.record("GetByIDs")
	if s.getByIDsFn == nil {
		return []models.Post{}, nil
	}
	return s.getByIDsFn(ids)
}

func (s *stubPosts) Search(_ context.Context, query string, limit int) ([]models.Post, error) {
	s.record("Search")
	if s.searchFn == nil {
		return nil, nil
	}
	return s.searchFn(query, limit)
}

func (s *stubPosts) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	s.record("Create")
	if s.createFn == nil {
		created := *p
		created.ID = gofakeit.UUID()
		created.CreatedAt = time.Now()
		return &created, nil
	}
	return s.createFn(p)
}

func (s *stubPosts) Delete(_ context.Context, id string) error {
	s.record("Delete")
	s.mu.Lock()
	s.deleted = append(s.deleted, id)
	s.mu.Unlock()
	return nil
}

func (s *stubPosts) SetLikeCount(context.Context, string, int) error {
	s.record("SetLikeCount")
	return nil
}

type stubLikes struct {
	mu        sync.Mutex
	calls     map[string]int
	likedByFn func(userID string) ([]string, error)
}

func newStubLikes() *stubLikes { return &stubLikes{calls: make(map[string]int)} }

func (s *stubLikes) record(op string) {
	s.mu.Lock()
	s.calls[op]++
	s.mu.Unlock()
}

func (s *stubLikes) Exists(context.Context, string, string) (bool, error) { return false, nil }
func (s *stubLikes) Add(context.Context, string, string) (bool, error)    { return false, nil }
func (s *stubLikes) Remove(context.Context, string, string) error         { return nil }
func (s *stubLikes) CountForPost(context.Context, string) (int, error)    { return 0, nil }

func (s *stubLikes) ListPostIDsByUser(_ context.Context, userID string) ([]string, error) {
	s.record("ListPostIDsByUser")
	if s.likedByFn == nil {
		return nil, nil
	}
	return s.likedByFn(userID)
}

type stubProfileSearch struct {
	mu        sync.Mutex
	searches  []string
	byUser    map[string]*models.Profile
	searchFn  func(query string, limit int) ([]models.Profile, error)
	updates   []map[string]any
	updateErr error
}

func (s *stubProfileSearch) GetByID(_ context.Context, id string) (*models.Profile, error) {
	if p, ok := s.byUser[id]; ok {
		return p, nil
	}
	return nil, models.NewNotFoundError("profile", id)
}

func (s *stubProfileSearch) GetByUsername(_ context.Context, username string) (*models.Profile, error) {
	for _, p := range s.byUser {
		if p.Username == username {
			return p, nil
		}
	}
	return nil, models.NewNotFoundError("profile", username)
}

func (s *stubProfileSearch) Search(_ context.Context, query string, limit int) ([]models.Profile, error) {
	s.mu.Lock()
	s.searches = append(s.searches, query)
	s.mu.Unlock()
	if s.searchFn == nil {
		return nil, nil
	}
	return s.searchFn(query, limit)
}

func (s *stubProfileSearch) Update(_ context.Context, _ string, patch map[string]any) error {
	s.mu.Lock()
	s.updates = append(s.updates, patch)
	s.mu.Unlock()
	return s.updateErr
}
func (s *stubProfileSearch) SetFollowCounts(context.Context, string, int, int) error {
	return nil
}

// stubActor answers Identity with a fixed value; nil means signed out.
type stubActor struct {
	identity *models.Identity
}

func (a *stubActor) Identity() *models.Identity { return a.identity }

// stubUploader records batches and succeeds or fails per configured name.
type stubUploader struct {
	mu       sync.Mutex
	batches  [][]storage.File
	buckets  []string
	failures map[string]error // by file name
	deleted  []string

	uploadEntered chan struct{}
	uploadRelease chan struct{}
}

func (u *stubUploader) UploadAll(_ context.Context, files []storage.File, bucket, ownerID string) []storage.UploadResult {
	if u.uploadEntered != nil {
		close(u.uploadEntered)
		u.uploadEntered = nil
	}
	if u.uploadRelease != nil {
		<-u.uploadRelease
	}
	u.mu.Lock()
	u.batches = append(u.batches, files)
	u.buckets = append(u.buckets, bucket)
	u.mu.Unlock()

	results := make([]storage.UploadResult, 0, len(files))
	for _, f := range files {
		if err, ok := u.failures[f.Name]; ok {
			results = append(results, storage.UploadResult{Name: f.Name, Err: err})
			continue
		}
		results = append(results, storage.UploadResult{Name: f.Name, Path: ownerID + "/" + f.Name})
	}
	return results
}

func (u *stubUploader) DeleteFile(_ context.Context, path, _ string) error {
	u.mu.Lock()
	u.deleted = append(u.deleted, path)
	u.mu.Unlock()
	return nil
}

func (u *stubUploader) uploadCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.batches)
}

// makePosts builds n fixture posts, newest first, one minute apart.
func makePosts(n int) []models.Post {
	now := time.Now().UTC().Truncate(time.Second)
	posts := make([]models.Post, n)
	for i := range posts {
		posts[i] = models.Post{
			ID:        gofakeit.UUID(),
			UserID:    gofakeit.UUID(),
			Text:      gofakeit.Sentence(8),
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		}
	}
	return posts
}
