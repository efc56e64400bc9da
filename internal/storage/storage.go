// Package storage handles file uploads against the backend object store:
// idempotent bucket provisioning, owner-namespaced uploads, lazy public
// URL resolution, and idempotent deletion.
package storage

import (
	"bytes"
	"context"
	"image"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"glasswing/internal/backend"
	"glasswing/internal/models"
	"glasswing/internal/observability"

	"github.com/google/uuid"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	// MaxFileSize is the per-object ceiling enforced on created buckets.
	MaxFileSize = 10 << 20 // 10 MiB

	// PlaceholderURL is returned whenever a path cannot be resolved to a
	// real public URL. Transient preview handles do not survive the
	// in-memory session, so they must never be handed to a renderer.
	PlaceholderURL = "/placeholder.svg"
)

// File is an in-memory file selected for upload.
type File struct {
	Name    string
	Content []byte
}

// UploadResult reports the outcome for one file of a batch. Partial
// success is expected; a failed file does not fail its siblings.
type UploadResult struct {
	Name string
	Path string
	Err  error
}

// Manager provides bucket and object operations on the backend store.
type Manager struct {
	api *backend.Client
	log *observability.Logger

	mu      sync.Mutex
	ensured map[string]bool
}

// NewManager returns a Manager over the given backend client.
func NewManager(api *backend.Client) *Manager {
	return &Manager{
		api:     api,
		log:     observability.GlobalLogger,
		ensured: make(map[string]bool),
	}
}

// EnsureBucket makes sure the named bucket exists, creating it with
// public-read and the size ceiling when absent. Idempotent: an existing
// bucket, or a creation race lost to a concurrent caller, both count as
// success. Returns false only when the bucket provably could not be
// provisioned.
func (m *Manager) EnsureBucket(ctx context.Context, name string) bool {
	m.mu.Lock()
	if m.ensured[name] {
		m.mu.Unlock()
		return true
	}
	m.mu.Unlock()

	if _, err := m.api.GetBucket(ctx, name); err == nil {
		m.markEnsured(name)
		return true
	}

	err := m.api.CreateBucket(ctx, name, true, MaxFileSize)
	if err != nil {
		// A concurrent caller may have created it between our check and
		// the create; re-check before declaring failure.
		if _, getErr := m.api.GetBucket(ctx, name); getErr == nil {
			m.markEnsured(name)
			return true
		}
		m.log.Error("bucket provisioning failed", "bucket", name, "error", err)
		return false
	}

	m.log.Info("bucket created", "bucket", name)
	m.markEnsured(name)
	return true
}

func (m *Manager) markEnsured(name string) {
	m.mu.Lock()
	m.ensured[name] = true
	m.mu.Unlock()
}

// UploadFile stores f in the bucket under a collision-resistant random
// name namespaced by ownerID, returning the bare storage path. Public
// URLs are resolved lazily via FileURL at read time. An empty ownerID
// fails fast before any network call.
func (m *Manager) UploadFile(ctx context.Context, f File, bucket, ownerID string) (string, error) {
	if ownerID == "" {
		return "", models.NewValidationError("uploads require an owner id")
	}
	if len(f.Content) == 0 {
		return "", models.NewValidationError("cannot upload an empty file")
	}
	if len(f.Content) > MaxFileSize {
		return "", models.NewValidationError("file exceeds the 10 MiB size limit")
	}

	contentType := http.DetectContentType(f.Content)
	if strings.HasPrefix(contentType, "image/") {
		if _, _, err := image.DecodeConfig(bytes.NewReader(f.Content)); err != nil {
			return "", models.NewValidationError("file is not a decodable image")
		}
	}

	if !m.EnsureBucket(ctx, bucket) {
		observability.UploadsTotal.WithLabelValues(bucket, "failure").Inc()
		return "", models.NewUploadError(f.Name, models.NewRemoteError("bucket provisioning", nil))
	}

	ext := strings.ToLower(filepath.Ext(f.Name))
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	path := ownerID + "/" + name

	if err := m.api.Upload(ctx, bucket, path, f.Content, contentType); err != nil {
		observability.UploadsTotal.WithLabelValues(bucket, "failure").Inc()
		return "", models.NewUploadError(f.Name, err)
	}

	observability.UploadsTotal.WithLabelValues(bucket, "success").Inc()
	m.log.Info("file uploaded", "bucket", bucket, "path", path, "bytes", len(f.Content))
	return path, nil
}

// UploadAll uploads each file, reporting per-file outcomes. One failed
// file never aborts the rest of the batch.
func (m *Manager) UploadAll(ctx context.Context, files []File, bucket, ownerID string) []UploadResult {
	results := make([]UploadResult, 0, len(files))
	for _, f := range files {
		path, err := m.UploadFile(ctx, f, bucket, ownerID)
		results = append(results, UploadResult{Name: f.Name, Path: path, Err: err})
	}
	return results
}

// IsTransientHandle reports whether path is a local preview handle that
// does not survive beyond the current in-memory session.
func IsTransientHandle(path string) bool {
	return strings.HasPrefix(path, "blob:") || strings.HasPrefix(path, "mem:")
}

// FileURL resolves path to a renderable URL. Pure; never fails. Absolute
// and data URLs pass through unchanged, transient handles and empty paths
// resolve to the placeholder, everything else becomes the public object
// URL in the bucket.
func (m *Manager) FileURL(path, bucket string) string {
	if path == "" {
		return PlaceholderURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "data:") {
		return path
	}
	if IsTransientHandle(path) {
		return PlaceholderURL
	}
	return m.api.PublicURL(bucket, path)
}

// DeleteFile removes the object at path from the bucket. Idempotent:
// empty paths, placeholders, transient handles, and already-absent
// objects are no-op successes.
func (m *Manager) DeleteFile(ctx context.Context, path, bucket string) error {
	if path == "" || path == PlaceholderURL || IsTransientHandle(path) || strings.HasPrefix(path, "data:") {
		return nil
	}

	// Tolerate callers holding a fully resolved public URL.
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		marker := "/storage/v1/object/public/" + bucket + "/"
		idx := strings.Index(path, marker)
		if idx < 0 {
			return nil
		}
		path = path[idx+len(marker):]
	}

	err := m.api.RemoveObjects(ctx, bucket, []string{path})
	if err != nil {
		if backend.IsStatus(err, http.StatusNotFound) {
			return nil
		}
		m.log.Error("file delete failed", "bucket", bucket, "path", path, "error", err)
		return models.NewRemoteError("file delete", err)
	}
	return nil
}
