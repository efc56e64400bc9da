// Package interactions reconciles optimistic like/follow toggles with the
// backend. Each (actor, target) edge runs an explicit state machine:
// local state flips before the mutation resolves, and a rejected mutation
// rolls the flip back instead of letting the view drift from the server.
package interactions

import (
	"context"
	"errors"
	"sync"

	"glasswing/internal/cache"
	"glasswing/internal/models"
	"glasswing/internal/observability"
	"glasswing/internal/repository"
)

// State is the reconciler's knowledge of one (actor, target) edge.
type State int

const (
	// Unknown means the edge has not been queried yet.
	Unknown State = iota
	// CheckedAbsent means the backend confirmed no relationship row.
	CheckedAbsent
	// CheckedPresent means the backend confirmed the relationship row.
	CheckedPresent
	// PendingToggle means a toggle mutation is in flight.
	PendingToggle
)

func (s State) String() string {
	switch s {
	case CheckedAbsent:
		return "checked-absent"
	case CheckedPresent:
		return "checked-present"
	case PendingToggle:
		return "pending-toggle"
	default:
		return "unknown"
	}
}

// ErrToggleInFlight is returned when a toggle is requested for an edge
// whose previous toggle has not settled. Rapid double-triggering must not
// issue overlapping mutations.
var ErrToggleInFlight = errors.New("a toggle for this target is already in flight")

// Status is the view-facing snapshot of an edge: the FSM state plus the
// optimistic engaged flag (liked/following), which flips before the
// mutation resolves.
type Status struct {
	State   State
	Engaged bool
}

type edgeKind string

const (
	kindLike   edgeKind = "like"
	kindFollow edgeKind = "follow"
)

type edgeKey struct {
	kind   edgeKind
	actor  string
	target string
}

type edge struct {
	state   State
	engaged bool
}

// Reconciler drives like/follow edges for the current process. Edge
// statuses are shared: two views of the same target observe the same
// snapshot after either one toggles.
type Reconciler struct {
	likes         repository.LikeRepository
	relationships repository.RelationshipRepository
	posts         repository.PostRepository
	profiles      repository.ProfileRepository
	notifications repository.NotificationRepository
	log           *observability.Logger

	mu    sync.Mutex
	edges map[edgeKey]*edge
}

// NewReconciler returns a Reconciler over the given repositories.
func NewReconciler(
	likes repository.LikeRepository,
	relationships repository.RelationshipRepository,
	posts repository.PostRepository,
	profiles repository.ProfileRepository,
	notifications repository.NotificationRepository,
) *Reconciler {
	return &Reconciler{
		likes:         likes,
		relationships: relationships,
		posts:         posts,
		profiles:      profiles,
		notifications: notifications,
		log:           observability.GlobalLogger,
		edges:         make(map[edgeKey]*edge),
	}
}

// LikeStatus resolves the actor's like edge on the post, querying the
// backend once on first view and answering from the local (and shared
// redis) cache afterwards.
func (r *Reconciler) LikeStatus(ctx context.Context, actorID, postID string) (Status, error) {
	return r.status(ctx, edgeKey{kindLike, actorID, postID}, func() (bool, error) {
		return r.likes.Exists(ctx, postID, actorID)
	})
}

// FollowStatus resolves the actor's follow edge on the target profile.
func (r *Reconciler) FollowStatus(ctx context.Context, actorID, targetID string) (Status, error) {
	return r.status(ctx, edgeKey{kindFollow, actorID, targetID}, func() (bool, error) {
		return r.relationships.Exists(ctx, actorID, targetID)
	})
}

func (r *Reconciler) status(ctx context.Context, key edgeKey, exists func() (bool, error)) (Status, error) {
	if key.actor == "" {
		return Status{State: CheckedAbsent}, nil
	}

	r.mu.Lock()
	if e, ok := r.edges[key]; ok && e.state != Unknown {
		status := Status{State: e.state, Engaged: e.engaged}
		r.mu.Unlock()
		return status, nil
	}
	r.mu.Unlock()

	var engaged bool
	cacheKey := r.cacheKey(key)
	err := cache.Aside(ctx, cacheKey, &engaged, cache.EdgeTTL, func() error {
		present, err := exists()
		if err != nil {
			return err
		}
		engaged = present
		return nil
	})
	if err != nil {
		return Status{State: Unknown}, err
	}

	state := CheckedAbsent
	if engaged {
		state = CheckedPresent
	}

	r.mu.Lock()
	r.edges[key] = &edge{state: state, engaged: engaged}
	r.mu.Unlock()

	return Status{State: state, Engaged: engaged}, nil
}

func (r *Reconciler) cacheKey(key edgeKey) string {
	if key.kind == kindLike {
		return cache.LikeKey(key.actor, key.target)
	}
	return cache.FollowKey(key.actor, key.target)
}

// ToggleLike flips the actor's like on the post. The local status flips
// optimistically; a rejected mutation rolls it back and returns the error.
// Returns the settled engaged value.
func (r *Reconciler) ToggleLike(ctx context.Context, actorID string, post *models.Post) (bool, error) {
	if actorID == "" {
		return false, models.NewAuthRequiredError("like a post")
	}

	key := edgeKey{kindLike, actorID, post.ID}
	liked, inserted, err := r.toggle(ctx, key,
		func() (bool, error) { return r.likes.Add(ctx, post.ID, actorID) },
		func() error { return r.likes.Remove(ctx, post.ID, actorID) },
	)
	if err != nil {
		return false, err
	}

	r.reconcileLikeCount(ctx, post)

	// Notify the post owner of a fresh like, never of an unlike, a
	// re-like that was already satisfied, or the actor liking their own post.
	if liked && inserted && actorID != post.UserID {
		contentID := post.ID
		notification := &models.Notification{
			UserID:      post.UserID,
			Type:        models.NotificationLike,
			InitiatorID: actorID,
			ContentID:   &contentID,
		}
		if err := r.notifications.Create(ctx, notification); err != nil {
			r.log.Error("like notification failed", "post_id", post.ID, "error", err)
		}
	}

	return liked, nil
}

// ToggleFollow flips the actor's follow edge on the target profile, with
// the same optimistic-flip and rollback contract as ToggleLike.
func (r *Reconciler) ToggleFollow(ctx context.Context, actorID string, target *models.Profile) (bool, error) {
	if actorID == "" {
		return false, models.NewAuthRequiredError("follow a user")
	}
	if actorID == target.ID {
		return false, models.NewValidationError("you cannot follow yourself")
	}

	key := edgeKey{kindFollow, actorID, target.ID}
	following, inserted, err := r.toggle(ctx, key,
		func() (bool, error) { return r.relationships.Add(ctx, actorID, target.ID) },
		func() error { return r.relationships.Remove(ctx, actorID, target.ID) },
	)
	if err != nil {
		return false, err
	}

	r.reconcileFollowCounts(ctx, actorID, target.ID)

	if following && inserted {
		notification := &models.Notification{
			UserID:      target.ID,
			Type:        models.NotificationFollow,
			InitiatorID: actorID,
		}
		if err := r.notifications.Create(ctx, notification); err != nil {
			r.log.Error("follow notification failed", "target_id", target.ID, "error", err)
		}
	}

	return following, nil
}

// toggle runs the FSM transition for one edge: resolve current state,
// flip optimistically, issue the mutation, settle or roll back.
func (r *Reconciler) toggle(ctx context.Context, key edgeKey, add func() (bool, error), remove func() error) (engaged, inserted bool, err error) {
	// Resolve the edge before toggling so the flip has a known origin.
	var exists func() (bool, error)
	if key.kind == kindLike {
		exists = func() (bool, error) { return r.likes.Exists(ctx, key.target, key.actor) }
	} else {
		exists = func() (bool, error) { return r.relationships.Exists(ctx, key.actor, key.target) }
	}
	if _, err := r.status(ctx, key, exists); err != nil {
		return false, false, err
	}

	r.mu.Lock()
	e := r.edges[key]
	if e.state == PendingToggle {
		r.mu.Unlock()
		return false, false, ErrToggleInFlight
	}
	snapshot := *e
	e.state = PendingToggle
	e.engaged = !e.engaged
	wantEngaged := e.engaged
	r.mu.Unlock()

	var mutationErr error
	if wantEngaged {
		inserted, mutationErr = add()
	} else {
		mutationErr = remove()
	}

	r.mu.Lock()
	if mutationErr != nil {
		*e = snapshot
		r.mu.Unlock()
		observability.OptimisticRollbacks.WithLabelValues(string(key.kind)).Inc()
		r.log.Error("toggle rejected, rolled back",
			"kind", string(key.kind), "actor", key.actor, "target", key.target,
			"error", mutationErr)
		return snapshot.engaged, false, mutationErr
	}
	if wantEngaged {
		e.state = CheckedPresent
	} else {
		e.state = CheckedAbsent
	}
	e.engaged = wantEngaged
	r.mu.Unlock()

	_ = cache.SetJSON(ctx, r.cacheKey(key), wantEngaged, cache.EdgeTTL)
	return wantEngaged, inserted, nil
}

// reconcileLikeCount recomputes the post's denormalized like counter from
// the relationship rows rather than incrementing the cached integer, so a
// partial failure cannot leave it drifted. Best effort; failures are logged.
func (r *Reconciler) reconcileLikeCount(ctx context.Context, post *models.Post) {
	n, err := r.likes.CountForPost(ctx, post.ID)
	if err != nil {
		r.log.Error("like count reconcile failed", "post_id", post.ID, "error", err)
		return
	}
	if err := r.posts.SetLikeCount(ctx, post.ID, n); err != nil {
		r.log.Error("like count write failed", "post_id", post.ID, "error", err)
		return
	}
	post.Likes = n
}

// reconcileFollowCounts recomputes follower/following counters for both
// sides of the edge from the relationship rows. Best effort.
func (r *Reconciler) reconcileFollowCounts(ctx context.Context, actorID, targetID string) {
	for _, userID := range []string{actorID, targetID} {
		followers, err := r.relationships.CountFollowers(ctx, userID)
		if err != nil {
			r.log.Error("follower count failed", "user_id", userID, "error", err)
			continue
		}
		following, err := r.relationships.CountFollowing(ctx, userID)
		if err != nil {
			r.log.Error("following count failed", "user_id", userID, "error", err)
			continue
		}
		if err := r.profiles.SetFollowCounts(ctx, userID, followers, following); err != nil {
			r.log.Error("follow count write failed", "user_id", userID, "error", err)
		}
	}
}
