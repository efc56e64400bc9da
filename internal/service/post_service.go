package service

import (
	"context"
	"strings"
	"sync/atomic"

	"glasswing/internal/models"
	"glasswing/internal/observability"
	"glasswing/internal/repository"
	"glasswing/internal/storage"
)

// Uploader is the slice of the storage manager the post service needs.
type Uploader interface {
	UploadAll(ctx context.Context, files []storage.File, bucket, ownerID string) []storage.UploadResult
	DeleteFile(ctx context.Context, path, bucket string) error
}

// Actor supplies the current authenticated identity.
type Actor interface {
	Identity() *models.Identity
}

// Draft is a post composed but not yet submitted. Media is held in memory
// until submission uploads it.
type Draft struct {
	Text      string
	Images    []storage.File
	Video     *storage.File
	IsPrivate bool
}

func (d *Draft) empty() bool {
	return strings.TrimSpace(d.Text) == "" && len(d.Images) == 0 && d.Video == nil
}

// SubmitOutcome reports a submission: the created post and the per-file
// upload results. Files can fail individually without failing the post.
type SubmitOutcome struct {
	Post    *models.Post
	Uploads []storage.UploadResult
}

// Failed returns the results of uploads that did not succeed.
func (o *SubmitOutcome) Failed() []storage.UploadResult {
	var failed []storage.UploadResult
	for _, r := range o.Uploads {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// PostService creates and deletes posts, uploading attached media first.
type PostService struct {
	posts   repository.PostRepository
	files   Uploader
	actor   Actor
	log     *observability.Logger
	buckets Buckets

	// submitting guards against re-entrant submission: a second Submit
	// while one is pending would create a duplicate post.
	submitting atomic.Bool
}

// Buckets names the storage buckets used for post media.
type Buckets struct {
	Images string
	Videos string
}

// NewPostService returns a PostService.
func NewPostService(posts repository.PostRepository, files Uploader, actor Actor, buckets Buckets) *PostService {
	if buckets.Images == "" {
		buckets.Images = "images"
	}
	if buckets.Videos == "" {
		buckets.Videos = "videos"
	}
	return &PostService{
		posts:   posts,
		files:   files,
		actor:   actor,
		log:     observability.GlobalLogger,
		buckets: buckets,
	}
}

// Submit validates and creates the draft as a post. Validation happens
// before any upload or insert: an empty draft never touches the network.
// Media is uploaded first and the post stores the bare storage paths.
func (s *PostService) Submit(ctx context.Context, draft Draft) (*SubmitOutcome, error) {
	if draft.empty() {
		return nil, models.NewValidationError("your post cannot be empty")
	}

	identity := s.actor.Identity()
	if identity == nil {
		return nil, models.NewAuthRequiredError("create a post")
	}

	if !s.submitting.CompareAndSwap(false, true) {
		return nil, models.NewValidationError("a post submission is already in progress")
	}
	defer s.submitting.Store(false)

	outcome := &SubmitOutcome{}

	var imagePaths []string
	if len(draft.Images) > 0 {
		results := s.files.UploadAll(ctx, draft.Images, s.buckets.Images, identity.ID)
		outcome.Uploads = append(outcome.Uploads, results...)
		for _, r := range results {
			if r.Err == nil {
				imagePaths = append(imagePaths, r.Path)
			}
		}
	}

	var videoPath *string
	if draft.Video != nil {
		results := s.files.UploadAll(ctx, []storage.File{*draft.Video}, s.buckets.Videos, identity.ID)
		outcome.Uploads = append(outcome.Uploads, results...)
		if results[0].Err == nil {
			videoPath = &results[0].Path
		}
	}

	// If every media item failed and there is no text, there is nothing
	// left worth posting; clean up nothing and report the failures.
	if strings.TrimSpace(draft.Text) == "" && len(imagePaths) == 0 && videoPath == nil {
		failed := outcome.Failed()
		return outcome, failed[0].Err
	}

	post := &models.Post{
		UserID:    identity.ID,
		Text:      draft.Text,
		Images:    imagePaths,
		Video:     videoPath,
		IsPrivate: draft.IsPrivate,
	}
	created, err := s.posts.Create(ctx, post)
	if err != nil {
		// The post row failed; remove the media that made it up.
		for _, path := range imagePaths {
			_ = s.files.DeleteFile(ctx, path, s.buckets.Images)
		}
		if videoPath != nil {
			_ = s.files.DeleteFile(ctx, *videoPath, s.buckets.Videos)
		}
		return outcome, err
	}

	outcome.Post = created
	return outcome, nil
}

// Delete removes the actor's own post and, best effort, its media.
func (s *PostService) Delete(ctx context.Context, post *models.Post) error {
	identity := s.actor.Identity()
	if identity == nil {
		return models.NewAuthRequiredError("delete a post")
	}
	if identity.ID != post.UserID {
		return models.NewValidationError("you can only delete your own posts")
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return err
	}

	for _, path := range post.Images {
		if err := s.files.DeleteFile(ctx, path, s.buckets.Images); err != nil {
			s.log.Error("post image cleanup failed", "path", path, "error", err)
		}
	}
	if post.Video != nil {
		if err := s.files.DeleteFile(ctx, *post.Video, s.buckets.Videos); err != nil {
			s.log.Error("post video cleanup failed", "path", *post.Video, "error", err)
		}
	}
	return nil
}
