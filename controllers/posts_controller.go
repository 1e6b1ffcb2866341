package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"blog/db"
	"blog/middlewares"
	"blog/models"
	"blog/validation"
	"blog/views"

	"github.com/gorilla/mux"
)

const (
	generationKey = "posts:gen"
	maxBodyBytes  = 1 << 20
)

// PostStore is the subset of *db.Store the handlers use.
type PostStore interface {
	CreatePost(ctx context.Context, title, content string) (int64, error)
	GetAllPosts(ctx context.Context) ([]models.Post, error)
	GetPostByID(ctx context.Context, id int64) (models.Post, bool, error)
	UpdatePost(ctx context.Context, id int64, title, content string) (int64, error)
	DeletePost(ctx context.Context, id int64) (int64, error)
	Ping(ctx context.Context) error
}

// PostHandler serves the HTML pages and the JSON API for posts.
type PostHandler struct {
	Store    PostStore
	Cache    db.Cache
	Views    *views.Renderer
	CacheTTL time.Duration
}

// Cached entries are keyed by the write generation current when their read
// began. Every write bumps the generation, so data read before a write lands
// under a key that is never read again.
func postsCacheKey(gen int64) string {
	return "posts:" + strconv.FormatInt(gen, 10)
}

func postCacheKey(id, gen int64) string {
	return "post:" + strconv.FormatInt(id, 10) + ":" + strconv.FormatInt(gen, 10)
}

func (h *PostHandler) SetupPostRoutes(r *mux.Router) {
	r.HandleFunc("/", h.Index).Methods("GET")
	r.HandleFunc("/posts/new", h.NewPost).Methods("GET")
	r.HandleFunc("/posts", h.CreatePost).Methods("POST")
	r.HandleFunc("/posts/{id:[0-9]+}", h.ShowPost).Methods("GET")
	r.HandleFunc("/posts/{id:[0-9]+}/edit", h.EditPost).Methods("GET")
	r.HandleFunc("/posts/{id:[0-9]+}/edit", h.UpdatePost).Methods("POST")
	r.HandleFunc("/posts/{id:[0-9]+}/delete", h.DeletePost).Methods("POST")
}

func (h *PostHandler) Index(w http.ResponseWriter, r *http.Request) {
	posts, err := h.fetchPosts(r.Context())
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "Failed to fetch posts", err)
		return
	}
	h.render(w, r, http.StatusOK, "index.html", views.Page{Posts: posts})
}

func (h *PostHandler) ShowPost(w http.ResponseWriter, r *http.Request) {
	post, ok := h.lookupPost(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "post.html", views.Page{Title: post.Title, Post: post})
}

func (h *PostHandler) NewPost(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "form.html", views.Page{Title: "New post", Action: "/posts"})
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	input, ok := h.parseForm(w, r, "New post", "/posts")
	if !ok {
		return
	}

	id, err := h.Store.CreatePost(r.Context(), input.Title, input.Content)
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "Failed to create post", err)
		return
	}

	h.invalidate(r.Context(), id)
	http.Redirect(w, r, fmt.Sprintf("/posts/%d", id), http.StatusSeeOther)
}

func (h *PostHandler) EditPost(w http.ResponseWriter, r *http.Request) {
	post, ok := h.lookupPost(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "form.html", views.Page{
		Title:  "Edit post",
		Action: fmt.Sprintf("/posts/%d/edit", post.ID),
		Form:   models.PostInput{Title: post.Title, Content: post.Content},
	})
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseID(mux.Vars(r)["id"])
	if err != nil {
		h.renderError(w, r, http.StatusNotFound, "Post not found", err)
		return
	}

	input, ok := h.parseForm(w, r, "Edit post", fmt.Sprintf("/posts/%d/edit", id))
	if !ok {
		return
	}

	affected, err := h.Store.UpdatePost(r.Context(), id, input.Title, input.Content)
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "Failed to update post", err)
		return
	}
	if affected == 0 {
		h.renderError(w, r, http.StatusNotFound, "Post not found", fmt.Errorf("post %d does not exist", id))
		return
	}

	h.invalidate(r.Context(), id)
	http.Redirect(w, r, fmt.Sprintf("/posts/%d", id), http.StatusSeeOther)
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseID(mux.Vars(r)["id"])
	if err != nil {
		h.renderError(w, r, http.StatusNotFound, "Post not found", err)
		return
	}

	affected, err := h.Store.DeletePost(r.Context(), id)
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "Failed to delete post", err)
		return
	}
	if affected == 0 {
		h.renderError(w, r, http.StatusNotFound, "Post not found", fmt.Errorf("post %d does not exist", id))
		return
	}

	h.invalidate(r.Context(), id)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// lookupPost loads the post named by the {id} route variable, rendering a
// 404 page when it does not exist.
func (h *PostHandler) lookupPost(w http.ResponseWriter, r *http.Request) (models.Post, bool) {
	id, err := validation.ParseID(mux.Vars(r)["id"])
	if err != nil {
		h.renderError(w, r, http.StatusNotFound, "Post not found", err)
		return models.Post{}, false
	}

	post, found, err := h.fetchPost(r.Context(), id)
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "Failed to fetch post", err)
		return models.Post{}, false
	}
	if !found {
		h.renderError(w, r, http.StatusNotFound, "Post not found", fmt.Errorf("post %d does not exist", id))
		return models.Post{}, false
	}
	return post, true
}

// parseForm reads and validates a submitted post form. On failure the form is
// rendered again with the errors and false is returned.
func (h *PostHandler) parseForm(w http.ResponseWriter, r *http.Request, title, action string) (models.PostInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Invalid form submission", err)
		return models.PostInput{}, false
	}

	input, err := validation.ValidatePost(models.PostInput{
		Title:   r.PostFormValue("title"),
		Content: r.PostFormValue("content"),
	})
	if err != nil {
		var verr *validation.ValidationError
		messages := []string{err.Error()}
		if errors.As(err, &verr) {
			messages = verr.Errors
		}
		h.render(w, r, http.StatusBadRequest, "form.html", views.Page{
			Title:  title,
			Action: action,
			Form:   input,
			Errors: messages,
		})
		return models.PostInput{}, false
	}
	return input, true
}

func (h *PostHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, page views.Page) {
	if err := h.Views.Render(w, status, name, page); err != nil {
		middlewares.HttpError(w, r, "Failed to render page", http.StatusInternalServerError, err)
	}
}

func (h *PostHandler) renderError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	log.Printf("[%s] HTTP %d - %s: %v", middlewares.RequestIDFromContext(r.Context()), status, message, err)
	title := http.StatusText(status)
	h.render(w, r, status, "error.html", views.Page{Title: title, Message: message})
}

// generation returns the current write generation. ok is false when it cannot
// be read, in which case the cache must be bypassed.
func (h *PostHandler) generation(ctx context.Context) (gen int64, ok bool) {
	data, err := h.Cache.Get(ctx, generationKey)
	if errors.Is(err, db.ErrCacheMiss) {
		return 0, true
	}
	if err != nil {
		log.Printf("error fetching cache generation: %v", err)
		return 0, false
	}
	gen, err = strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		log.Printf("error parsing cache generation %q: %v", data, err)
		return 0, false
	}
	return gen, true
}

// fetchPosts returns all posts, from the cache when possible.
func (h *PostHandler) fetchPosts(ctx context.Context) ([]models.Post, error) {
	gen, ok := h.generation(ctx)
	if !ok {
		return h.Store.GetAllPosts(ctx)
	}

	key := postsCacheKey(gen)
	cached, err := h.Cache.Get(ctx, key)
	if err == nil {
		var posts []models.Post
		jsonErr := json.Unmarshal(cached, &posts)
		if jsonErr == nil {
			return posts, nil
		}
		log.Printf("error unmarshalling cached posts data: %v", jsonErr)
	} else if !errors.Is(err, db.ErrCacheMiss) {
		log.Printf("error fetching posts from cache: %v", err)
	}

	posts, err := h.Store.GetAllPosts(ctx)
	if err != nil {
		return nil, err
	}

	h.store(ctx, key, posts)
	return posts, nil
}

// fetchPost returns one post, from the cache when possible. Missing posts are
// not cached.
func (h *PostHandler) fetchPost(ctx context.Context, id int64) (models.Post, bool, error) {
	gen, ok := h.generation(ctx)
	if !ok {
		return h.Store.GetPostByID(ctx, id)
	}

	key := postCacheKey(id, gen)
	cached, err := h.Cache.Get(ctx, key)
	if err == nil {
		var post models.Post
		jsonErr := json.Unmarshal(cached, &post)
		if jsonErr == nil {
			return post, true, nil
		}
		log.Printf("error unmarshalling cached post %d: %v", id, jsonErr)
	} else if !errors.Is(err, db.ErrCacheMiss) {
		log.Printf("error fetching post %d from cache: %v", id, err)
	}

	post, found, err := h.Store.GetPostByID(ctx, id)
	if err != nil || !found {
		return post, found, err
	}

	h.store(ctx, key, post)
	return post, true, nil
}

func (h *PostHandler) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := h.Cache.Set(ctx, key, data, h.CacheTTL); err != nil {
		log.Printf("error caching %s: %v", key, err)
	}
}

// invalidate runs after a committed write to post id. It bumps the write
// generation and drops the entries of the previous one; entries written by
// reads still in flight expire on their TTL without being served.
func (h *PostHandler) invalidate(ctx context.Context, id int64) {
	gen, err := h.Cache.Incr(ctx, generationKey)
	if err != nil {
		log.Printf("error bumping cache generation for post %d: %v", id, err)
		return
	}
	if err := h.Cache.Del(ctx, postsCacheKey(gen-1), postCacheKey(id, gen-1)); err != nil {
		log.Printf("error invalidating cache for post %d: %v", id, err)
	}
}
