// Package models contains data structures for the application's domain models.
package models

import "time"

// Identity is the authenticated principal held for the session lifetime.
// It is never persisted by the client.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Profile is the public-facing user record associated with an Identity.
// The followers/following/posts counters are denormalized caches maintained
// remotely; treat them as approximate.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Avatar    *string   `json:"avatar"`
	Bio       *string   `json:"bio"`
	IsPrivate bool      `json:"is_private"`
	Followers int       `json:"followers"`
	Following int       `json:"following"`
	Posts     int       `json:"posts"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is a user post. Images and Video hold bare storage paths; public
// URLs are resolved lazily at read time.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Images    []string  `json:"images"`
	Video     *string   `json:"video"`
	IsPrivate bool      `json:"is_private"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
	Shares    int       `json:"shares"`
	CreatedAt time.Time `json:"created_at"`
	Profile   *Profile  `json:"profile,omitempty"`
}

// HasMedia reports whether the post carries at least one image or a video.
func (p *Post) HasMedia() bool {
	return len(p.Images) > 0 || (p.Video != nil && *p.Video != "")
}

// Like is a relationship row in post_likes. At most one row exists per
// (post_id, user_id); its presence is the source of truth for "did I like
// this", independent of the Post.Likes counter.
type Like struct {
	PostID string `json:"post_id"`
	UserID string `json:"user_id"`
}

// Relationship is a follow edge in user_relationships. At most one row
// exists per ordered (follower_id, following_id) pair.
type Relationship struct {
	FollowerID  string `json:"follower_id"`
	FollowingID string `json:"following_id"`
}

// Comment is a comment on a post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"created_at"`
	Profile   *Profile  `json:"profile,omitempty"`
}

// NotificationType enumerates notification kinds.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationFollow  NotificationType = "follow"
	NotificationMention NotificationType = "mention"
	NotificationShare   NotificationType = "share"
)

// Notification is created as a side effect of like/follow actions and
// addressed to the target's owner.
type Notification struct {
	ID          string           `json:"id,omitempty"`
	UserID      string           `json:"user_id"`
	Type        NotificationType `json:"type"`
	InitiatorID string           `json:"initiator_id"`
	ContentID   *string          `json:"content_id"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at,omitzero"`
	Initiator   *Profile         `json:"initiator,omitempty"`
}
