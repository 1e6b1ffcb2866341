package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"blog/db"
	"blog/models"
	"blog/views"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, db.ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := strconv.ParseInt(string(c.data[key]), 10, 64)
	if err != nil && len(c.data[key]) > 0 {
		return 0, err
	}
	n++
	c.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// brokenStore fails every call it overrides.
type brokenStore struct {
	PostStore
}

var errBroken = errors.New("disk on fire")

func (brokenStore) GetAllPosts(context.Context) ([]models.Post, error) { return nil, errBroken }

func (brokenStore) CreatePost(context.Context, string, string) (int64, error) {
	return 0, db.ErrCreatePost
}

func (brokenStore) Ping(context.Context) error { return errBroken }

// pausingStore holds the first GetAllPosts call after its query has run,
// until release is closed.
type pausingStore struct {
	*db.Store
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func newPausingStore(store *db.Store) *pausingStore {
	return &pausingStore{Store: store, loaded: make(chan struct{}), release: make(chan struct{})}
}

func (s *pausingStore) GetAllPosts(ctx context.Context) ([]models.Post, error) {
	posts, err := s.Store.GetAllPosts(ctx)
	s.once.Do(func() {
		close(s.loaded)
		<-s.release
	})
	return posts, err
}

type testServer struct {
	store   *db.Store
	cache   *memCache
	handler *PostHandler
	router  *mux.Router
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "blog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.EnsureSchema(context.Background()))

	return newTestServerWithStore(t, store, store)
}

func newTestServerWithStore(t *testing.T, store *db.Store, ps PostStore) *testServer {
	t.Helper()
	renderer, err := views.New()
	require.NoError(t, err)

	cache := newMemCache()
	h := &PostHandler{Store: ps, Cache: cache, Views: renderer, CacheTTL: time.Minute}
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	h.SetupPostAPIRoutes(r)
	h.SetupPostRoutes(r)

	return &testServer{store: store, cache: cache, handler: h, router: r}
}

func (s *testServer) do(method, target string, body string, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) postForm(target, title, content string) *httptest.ResponseRecorder {
	form := url.Values{"title": {title}, "content": {content}}
	return s.do(http.MethodPost, target, form.Encode(), "application/x-www-form-urlencoded")
}
