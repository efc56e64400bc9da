package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicURL(t *testing.T) {
	client := New("http://localhost:54321", "anon")

	assert.Equal(t,
		"http://localhost:54321/storage/v1/object/public/images/u1/abc.png",
		client.PublicURL("images", "u1/abc.png"))

	// Segments are escaped individually so the separator survives.
	assert.Equal(t,
		"http://localhost:54321/storage/v1/object/public/images/u1/a%20b.png",
		client.PublicURL("images", "u1/a b.png"))
}

func TestCreateBucketBody(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/storage/v1/bucket", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"name":"images"}`))
	}))
	defer server.Close()

	client := New(server.URL, "anon")
	require.NoError(t, client.CreateBucket(context.Background(), "images", true, 10<<20))

	assert.Equal(t, "images", body["id"])
	assert.Equal(t, "images", body["name"])
	assert.Equal(t, true, body["public"])
	assert.EqualValues(t, 10<<20, body["file_size_limit"])
}

func TestGetBucketMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Bucket not found"}`))
	}))
	defer server.Close()

	client := New(server.URL, "anon")
	bucket, err := client.GetBucket(context.Background(), "missing")
	require.Error(t, err)
	assert.Nil(t, bucket)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestUploadSetsContentType(t *testing.T) {
	var gotPath, gotType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"Key":"images/u1/abc.png"}`))
	}))
	defer server.Close()

	client := New(server.URL, "anon")
	err := client.Upload(context.Background(), "images", "u1/abc.png", []byte("png-bytes"), "image/png")
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/images/u1/abc.png", gotPath)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, "png-bytes", string(gotBody))
}

func TestRemoveObjectsSendsPrefixes(t *testing.T) {
	var body map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/storage/v1/object/images", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := New(server.URL, "anon")
	require.NoError(t, client.RemoveObjects(context.Background(), "images", []string{"u1/a.png", "u1/b.png"}))
	assert.Equal(t, []string{"u1/a.png", "u1/b.png"}, body["prefixes"])
}
