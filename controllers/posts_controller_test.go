package controllers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTML_CreateShowEditDelete(t *testing.T) {
	s := newTestServer(t)

	rec := s.postForm("/posts", "Hello", "Some **bold** words")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/posts/1", rec.Header().Get("Location"))

	rec = s.do(http.MethodGet, "/posts/1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello")
	assert.Contains(t, rec.Body.String(), "<strong>bold</strong>")

	rec = s.do(http.MethodGet, "/posts/1/edit", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Hello"`)
	assert.Contains(t, rec.Body.String(), `action="/posts/1/edit"`)

	rec = s.postForm("/posts/1/edit", "Hello again", "Changed")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/posts/1", rec.Header().Get("Location"))

	post, ok, err := s.store.GetPostByID(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hello again", post.Title)
	assert.Equal(t, "Changed", post.Content)

	rec = s.do(http.MethodPost, "/posts/1/delete", "", "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = s.do(http.MethodGet, "/posts/1", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Post not found")
}

func TestHTML_IndexNewestFirst(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.store.CreatePost(ctx, "Hello", "World")
	require.NoError(t, err)
	_, err = s.store.CreatePost(ctx, "Second", "Post")
	require.NoError(t, err)

	rec := s.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	first := strings.Index(body, "Second")
	second := strings.Index(body, "Hello")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)
}

func TestHTML_NewPostForm(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/posts/new", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/posts"`)
}

func TestHTML_CreateValidationError(t *testing.T) {
	s := newTestServer(t)

	rec := s.postForm("/posts", "   ", "kept content")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "title is required")
	assert.Contains(t, rec.Body.String(), "kept content")

	posts, err := s.store.GetAllPosts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestHTML_UpdateValidationError(t *testing.T) {
	s := newTestServer(t)
	_, err := s.store.CreatePost(context.Background(), "Hello", "World")
	require.NoError(t, err)

	rec := s.postForm("/posts/1/edit", "Hello", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "content is required")
}

func TestHTML_MissingPost(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		target string
		form   bool
	}{
		{name: "show", method: http.MethodGet, target: "/posts/42"},
		{name: "show zero", method: http.MethodGet, target: "/posts/0"},
		{name: "edit form", method: http.MethodGet, target: "/posts/42/edit"},
		{name: "update", method: http.MethodPost, target: "/posts/42/edit", form: true},
		{name: "delete", method: http.MethodPost, target: "/posts/42/delete"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var code int
			if tt.form {
				code = s.postForm(tt.target, "t", "c").Code
			} else {
				code = s.do(tt.method, tt.target, "", "").Code
			}
			assert.Equal(t, http.StatusNotFound, code)
		})
	}
}

func TestHTML_StoreFailure(t *testing.T) {
	s := newTestServer(t)
	broken := newTestServerWithStore(t, s.store, brokenStore{})

	rec := broken.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = broken.postForm("/posts", "Hello", "World")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCache_ReadThroughAndInvalidate(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	id, err := s.store.CreatePost(ctx, "Hello", "World")
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/", "", "").Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/posts/1", "", "").Code)
	assert.True(t, s.cache.has(postsCacheKey(0)))
	assert.True(t, s.cache.has(postCacheKey(id, 0)))

	// A write that bypasses the handlers is not visible until the cache is dropped.
	_, err = s.store.UpdatePost(ctx, id, "Sneaky", "edit")
	require.NoError(t, err)
	assert.Contains(t, s.do(http.MethodGet, "/posts/1", "", "").Body.String(), "Hello")

	require.Equal(t, http.StatusSeeOther, s.postForm("/posts/1/edit", "Fresh", "content").Code)
	assert.False(t, s.cache.has(postsCacheKey(0)))
	assert.False(t, s.cache.has(postCacheKey(id, 0)))
	assert.Contains(t, s.do(http.MethodGet, "/posts/1", "", "").Body.String(), "Fresh")
}

func TestCache_CorruptEntryFallsBackToStore(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.store.CreatePost(ctx, "Hello", "World")
	require.NoError(t, err)
	require.NoError(t, s.cache.Set(ctx, postsCacheKey(0), []byte("{not json"), 0))

	rec := s.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello")
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	broken := newTestServerWithStore(t, s.store, brokenStore{})
	rec = broken.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
