// Package session owns the process-wide authenticated identity and its
// cached profile. It is the single writer of auth state; dependent
// components observe changes through Subscribe.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"glasswing/internal/backend"
	"glasswing/internal/models"
	"glasswing/internal/observability"
	"glasswing/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

// refreshLead is how long before token expiry a refresh is attempted.
const refreshLead = 30 * time.Second

// Provider holds the current authenticated identity and cached profile,
// and notifies subscribers on every transition. Safe for concurrent use.
type Provider struct {
	api      *backend.Client
	profiles repository.ProfileRepository
	store    TokenStore
	log      *observability.Logger

	mu           sync.RWMutex
	session      *backend.Session
	profile      *models.Profile
	subs         map[int]func()
	nextSubID    int
	refreshTimer *time.Timer
}

// NewProvider returns a Provider using store for session persistence.
func NewProvider(api *backend.Client, profiles repository.ProfileRepository, store TokenStore) *Provider {
	return &Provider{
		api:      api,
		profiles: profiles,
		store:    store,
		log:      observability.GlobalLogger,
		subs:     make(map[int]func()),
	}
}

// Subscribe registers fn to run after every identity/profile change. The
// returned function removes the subscription.
func (p *Provider) Subscribe(fn func()) func() {
	p.mu.Lock()
	id := p.nextSubID
	p.nextSubID++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *Provider) notify() {
	p.mu.RLock()
	fns := make([]func(), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// Identity returns a copy of the current identity, or nil when signed out.
func (p *Provider) Identity() *models.Identity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.session == nil {
		return nil
	}
	identity := p.session.User
	return &identity
}

// CurrentProfile returns a copy of the cached profile, or nil.
func (p *Provider) CurrentProfile() *models.Profile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.profile == nil {
		return nil
	}
	profile := *p.profile
	return &profile
}

// Authenticated reports whether a session is established.
func (p *Provider) Authenticated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.session != nil
}

// Restore re-establishes a persisted session on startup. Any failure is
// logged and leaves the provider unauthenticated: session checks fail
// open to logged-out, never to logged-in.
func (p *Provider) Restore(ctx context.Context) {
	stored, err := p.store.Load()
	if err != nil {
		p.log.Error("session restore failed", "error", err)
		return
	}
	if stored == nil {
		return
	}

	if stored.Expired() {
		if stored.RefreshToken == "" {
			_ = p.store.Clear()
			return
		}
		refreshed, err := p.api.RefreshSession(ctx, stored.RefreshToken)
		if err != nil {
			p.log.Error("session refresh on restore failed", "error", err)
			_ = p.store.Clear()
			return
		}
		stored = refreshed
	}

	p.adoptSession(ctx, stored)
}

// SignIn submits credentials and, on success, establishes the session and
// populates identity and profile. On failure the provider remains
// unauthenticated.
func (p *Provider) SignIn(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return models.NewValidationError("email and password are required")
	}

	session, err := p.api.SignInWithPassword(ctx, email, password)
	if err != nil {
		p.log.Error("sign in failed", "email", email, "error", err)
		return models.NewRemoteError("sign in", err)
	}

	p.adoptSession(ctx, session)
	p.log.Info("signed in", "user_id", session.User.ID)
	return nil
}

// SignUp creates the identity; the backend provisions the profile row from
// the seed metadata.
func (p *Provider) SignUp(ctx context.Context, email, password, username, fullName string) error {
	if email == "" || password == "" {
		return models.NewValidationError("email and password are required")
	}
	if strings.TrimSpace(username) == "" {
		return models.NewValidationError("a username is required")
	}

	session, err := p.api.SignUp(ctx, email, password, map[string]any{
		"username":  username,
		"full_name": fullName,
	})
	if err != nil {
		p.log.Error("sign up failed", "email", email, "error", err)
		return models.NewRemoteError("sign up", err)
	}

	p.adoptSession(ctx, session)
	p.log.Info("signed up", "user_id", session.User.ID)
	return nil
}

// SignOut clears identity, profile, and persisted session. Local state is
// cleared even when the remote revoke fails; the error is returned so the
// caller can surface it, but the user ends up signed out locally either way.
func (p *Provider) SignOut(ctx context.Context) error {
	remoteErr := p.api.SignOut(ctx)
	if remoteErr != nil {
		p.log.Error("remote sign out failed", "error", remoteErr)
		remoteErr = models.NewRemoteError("sign out", remoteErr)
	}

	p.clearLocal()
	p.notify()
	p.log.Info("signed out")
	return remoteErr
}

// UpdateProfile merges fields into the profile via a targeted update, then
// re-fetches the canonical row rather than trusting the merge.
func (p *Provider) UpdateProfile(ctx context.Context, patch map[string]any) error {
	identity := p.Identity()
	if identity == nil {
		return models.NewAuthRequiredError("update your profile")
	}

	if err := p.profiles.Update(ctx, identity.ID, patch); err != nil {
		return err
	}

	p.syncProfile(ctx, identity.ID)
	p.notify()
	return nil
}

// adoptSession installs the session, persists it, schedules the refresh,
// loads the profile, and notifies subscribers.
func (p *Provider) adoptSession(ctx context.Context, session *backend.Session) {
	p.api.SetAuthToken(session.AccessToken)
	if err := p.store.Save(session); err != nil {
		p.log.Error("session persist failed", "error", err)
	}

	p.mu.Lock()
	p.session = session
	p.mu.Unlock()

	p.scheduleRefresh(session)
	p.syncProfile(ctx, session.User.ID)
	p.notify()
}

// syncProfile refreshes the cached profile from the backend. A fetch
// failure leaves the previous cached value in place.
func (p *Provider) syncProfile(ctx context.Context, userID string) {
	profile, err := p.profiles.GetByID(ctx, userID)
	if err != nil {
		p.log.Error("profile sync failed", "user_id", userID, "error", err)
		return
	}
	p.mu.Lock()
	p.profile = profile
	p.mu.Unlock()
}

func (p *Provider) clearLocal() {
	p.api.SetAuthToken("")
	if err := p.store.Clear(); err != nil {
		p.log.Error("session clear failed", "error", err)
	}

	p.mu.Lock()
	p.session = nil
	p.profile = nil
	if p.refreshTimer != nil {
		p.refreshTimer.Stop()
		p.refreshTimer = nil
	}
	p.mu.Unlock()
}

// scheduleRefresh arms a timer to refresh the session shortly before the
// access token expires. This is the externally-triggered session change
// path: subscribers learn about the new session without user action.
func (p *Provider) scheduleRefresh(session *backend.Session) {
	expiry := tokenExpiry(session)
	if expiry.IsZero() || session.RefreshToken == "" {
		return
	}

	wait := time.Until(expiry.Add(-refreshLead))
	if wait < 0 {
		wait = 0
	}

	p.mu.Lock()
	if p.refreshTimer != nil {
		p.refreshTimer.Stop()
	}
	refreshToken := session.RefreshToken
	p.refreshTimer = time.AfterFunc(wait, func() {
		p.refresh(refreshToken)
	})
	p.mu.Unlock()
}

func (p *Provider) refresh(refreshToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	session, err := p.api.RefreshSession(ctx, refreshToken)
	if err != nil {
		// Fail open to logged-out: a session that cannot be refreshed is
		// treated as ended.
		p.log.Error("session refresh failed", "error", err)
		p.clearLocal()
		p.notify()
		return
	}

	p.adoptSession(ctx, session)
	p.log.Info("session refreshed", "user_id", session.User.ID)
}

// Close stops the background refresh timer.
func (p *Provider) Close() {
	p.mu.Lock()
	if p.refreshTimer != nil {
		p.refreshTimer.Stop()
		p.refreshTimer = nil
	}
	p.mu.Unlock()
}

// tokenExpiry determines when the session's access token expires,
// preferring the explicit expires_at and falling back to the JWT exp
// claim. The token is parsed without signature verification; the client
// holds no signing key and only needs the schedule.
func tokenExpiry(session *backend.Session) time.Time {
	if session.ExpiresAt > 0 {
		return time.Unix(session.ExpiresAt, 0)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(session.AccessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
