package backend

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Bucket is a named partition in the object storage service.
type Bucket struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Public        bool   `json:"public"`
	FileSizeLimit int64  `json:"file_size_limit"`
}

// ListBuckets returns all buckets visible to the caller.
func (c *Client) ListBuckets(ctx context.Context) ([]Bucket, error) {
	var buckets []Bucket
	if err := c.doJSON(ctx, request{
		method:   http.MethodGet,
		path:     "/storage/v1/bucket",
		resource: "storage",
	}, &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

// GetBucket fetches a bucket by name. An absent bucket surfaces as an
// APIError with a 404 or 400 status.
func (c *Client) GetBucket(ctx context.Context, name string) (*Bucket, error) {
	var bucket Bucket
	if err := c.doJSON(ctx, request{
		method:   http.MethodGet,
		path:     "/storage/v1/bucket/" + url.PathEscape(name),
		resource: "storage",
	}, &bucket); err != nil {
		return nil, err
	}
	return &bucket, nil
}

type createBucketBody struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Public        bool   `json:"public"`
	FileSizeLimit int64  `json:"file_size_limit,omitempty"`
}

// CreateBucket creates a bucket. Creating a bucket that already exists is
// rejected by the backend; callers treat that rejection as success.
func (c *Client) CreateBucket(ctx context.Context, name string, public bool, fileSizeLimit int64) error {
	body, err := jsonBody(createBucketBody{
		ID:            name,
		Name:          name,
		Public:        public,
		FileSizeLimit: fileSizeLimit,
	})
	if err != nil {
		return err
	}

	return c.doJSON(ctx, request{
		method:   http.MethodPost,
		path:     "/storage/v1/bucket",
		body:     body,
		resource: "storage",
	}, nil)
}

// Upload stores content under path in the bucket.
func (c *Client) Upload(ctx context.Context, bucket, path string, content []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.doJSON(ctx, request{
		method:   http.MethodPost,
		path:     "/storage/v1/object/" + url.PathEscape(bucket) + "/" + escapeObjectPath(path),
		headers:  map[string]string{"Content-Type": contentType},
		body:     bytes.NewReader(content),
		resource: "storage",
	}, nil)
}

// PublicURL resolves the public object URL for path in the bucket. Pure;
// performs no request.
func (c *Client) PublicURL(bucket, path string) string {
	return c.baseURL + "/storage/v1/object/public/" + url.PathEscape(bucket) + "/" + escapeObjectPath(path)
}

// RemoveObjects deletes the given paths from the bucket. Absent paths are
// not an error.
func (c *Client) RemoveObjects(ctx context.Context, bucket string, paths []string) error {
	body, err := jsonBody(map[string][]string{"prefixes": paths})
	if err != nil {
		return err
	}
	return c.doJSON(ctx, request{
		method:   http.MethodDelete,
		path:     "/storage/v1/object/" + url.PathEscape(bucket),
		body:     body,
		resource: "storage",
	}, nil)
}

// escapeObjectPath escapes each segment of an object path while keeping
// the separators.
func escapeObjectPath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
