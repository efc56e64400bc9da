package service

import (
	"context"
	"sync"

	"glasswing/internal/models"
	"glasswing/internal/repository"
	"glasswing/internal/storage"
)

// Tab identifies one of the profile view's sub-fetches. Each tab is an
// independent query cached independently.
type Tab string

const (
	TabPosts Tab = "posts"
	TabMedia Tab = "media"
	TabLikes Tab = "likes"
)

type tabKey struct {
	profileID string
	tab       Tab
}

// ProfileService resolves profiles by username, serves the profile view's
// tabbed post lists, and handles the settings-page avatar swap.
type ProfileService struct {
	profiles repository.ProfileRepository
	posts    repository.PostRepository
	likes    repository.LikeRepository
	files    Uploader
	actor    Actor
	avatars  string

	mu       sync.Mutex
	tabCache map[tabKey][]models.Post
}

// NewProfileService returns a ProfileService uploading avatars into the
// named bucket.
func NewProfileService(
	profiles repository.ProfileRepository,
	posts repository.PostRepository,
	likes repository.LikeRepository,
	files Uploader,
	actor Actor,
	avatarsBucket string,
) *ProfileService {
	if avatarsBucket == "" {
		avatarsBucket = "avatars"
	}
	return &ProfileService{
		profiles: profiles,
		posts:    posts,
		likes:    likes,
		files:    files,
		actor:    actor,
		avatars:  avatarsBucket,
		tabCache: make(map[tabKey][]models.Post),
	}
}

// Lookup resolves a profile by its unique username. An absent profile is
// the distinct NOT_FOUND outcome (models.IsNotFound), not a remote error;
// the view renders it as "user not found" rather than a failure.
func (s *ProfileService) Lookup(ctx context.Context, username string) (*models.Profile, error) {
	if username == "" {
		return nil, models.NewNotFoundError("profile", username)
	}
	return s.profiles.GetByUsername(ctx, username)
}

// TabPosts returns the posts behind the given tab of a profile, fetching
// on first access and answering from the tab cache afterwards.
//
// The likes tab resolves the profile's like rows to an id set first; an
// empty set short-circuits to an empty result without issuing a fetch.
func (s *ProfileService) TabPosts(ctx context.Context, profileID string, tab Tab) ([]models.Post, error) {
	key := tabKey{profileID: profileID, tab: tab}

	s.mu.Lock()
	if cached, ok := s.tabCache[key]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	var posts []models.Post
	var err error
	switch tab {
	case TabMedia:
		posts, err = s.posts.ListMediaByUser(ctx, profileID)
	case TabLikes:
		var ids []string
		ids, err = s.likes.ListPostIDsByUser(ctx, profileID)
		if err == nil {
			posts, err = s.posts.GetByIDs(ctx, ids)
		}
	default:
		posts, err = s.posts.ListByUser(ctx, profileID)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.tabCache[key] = posts
	s.mu.Unlock()
	return posts, nil
}

// UpdateAvatar uploads f into the avatars bucket and points the actor's
// profile at it, returning the stored bare path. The URL is resolved
// lazily at read time like post media. The previous avatar is removed
// best effort once the swap lands; a failed patch removes the fresh
// upload instead, so the row never points at an object that was lost.
func (s *ProfileService) UpdateAvatar(ctx context.Context, f storage.File) (string, error) {
	identity := s.actor.Identity()
	if identity == nil {
		return "", models.NewAuthRequiredError("change your avatar")
	}

	previous := ""
	if current, err := s.profiles.GetByID(ctx, identity.ID); err == nil && current.Avatar != nil {
		previous = *current.Avatar
	}

	results := s.files.UploadAll(ctx, []storage.File{f}, s.avatars, identity.ID)
	if results[0].Err != nil {
		return "", results[0].Err
	}
	path := results[0].Path

	if err := s.profiles.Update(ctx, identity.ID, map[string]any{"avatar": path}); err != nil {
		_ = s.files.DeleteFile(ctx, path, s.avatars)
		return "", err
	}

	if previous != "" && previous != path {
		_ = s.files.DeleteFile(ctx, previous, s.avatars)
	}
	return path, nil
}

// Invalidate drops the cached tabs for a profile, forcing the next access
// to re-fetch. Called after the profile posts something or toggles a like.
func (s *ProfileService) Invalidate(profileID string) {
	s.mu.Lock()
	for _, tab := range []Tab{TabPosts, TabMedia, TabLikes} {
		delete(s.tabCache, tabKey{profileID: profileID, tab: tab})
	}
	s.mu.Unlock()
}
