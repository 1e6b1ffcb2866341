package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"blog/middlewares"
	"blog/models"
	"blog/validation"

	"github.com/gorilla/mux"
)

type createdResponse struct {
	ID int64 `json:"id"`
}

func (h *PostHandler) SetupPostAPIRoutes(r *mux.Router) {
	postsRouter := r.PathPrefix("/api/posts").Subrouter()
	postsRouter.HandleFunc("", h.GetPostAPI).Methods("GET").Queries("id", "{id}")
	postsRouter.HandleFunc("", h.GetPostsAPI).Methods("GET")
	postsRouter.HandleFunc("", h.CreatePostAPI).Methods("POST")
	postsRouter.HandleFunc("", h.UpdatePostAPI).Methods("PUT").Queries("id", "{id}")
	postsRouter.HandleFunc("", h.DeletePostAPI).Methods("DELETE").Queries("id", "{id}")
}

func (h *PostHandler) GetPostsAPI(w http.ResponseWriter, r *http.Request) {
	posts, err := h.fetchPosts(r.Context())
	if err != nil {
		middlewares.HttpError(w, r, "Failed to fetch posts", http.StatusInternalServerError, err)
		return
	}

	middlewares.RespondJSON(w, posts, http.StatusOK)
}

func (h *PostHandler) GetPostAPI(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseID(r.URL.Query().Get("id"))
	if err != nil {
		middlewares.HttpError(w, r, "Invalid ID parameter", http.StatusBadRequest, err)
		return
	}

	post, found, err := h.fetchPost(r.Context(), id)
	if err != nil {
		middlewares.HttpError(w, r, "Failed to fetch post", http.StatusInternalServerError, err)
		return
	}
	if !found {
		middlewares.HttpError(w, r, "Post not found", http.StatusNotFound, fmt.Errorf("post %d does not exist", id))
		return
	}

	middlewares.RespondJSON(w, post, http.StatusOK)
}

func (h *PostHandler) CreatePostAPI(w http.ResponseWriter, r *http.Request) {
	input, ok := decodePostInput(w, r)
	if !ok {
		return
	}

	id, err := h.Store.CreatePost(r.Context(), input.Title, input.Content)
	if err != nil {
		middlewares.HttpError(w, r, "Failed to create post", http.StatusInternalServerError, err)
		return
	}

	h.invalidate(r.Context(), id)
	w.Header().Set("Location", fmt.Sprintf("/api/posts?id=%d", id))
	middlewares.RespondJSON(w, createdResponse{ID: id}, http.StatusCreated)
}

func (h *PostHandler) UpdatePostAPI(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseID(r.URL.Query().Get("id"))
	if err != nil {
		middlewares.HttpError(w, r, "Invalid ID parameter", http.StatusBadRequest, err)
		return
	}

	input, ok := decodePostInput(w, r)
	if !ok {
		return
	}

	affected, err := h.Store.UpdatePost(r.Context(), id, input.Title, input.Content)
	if err != nil {
		middlewares.HttpError(w, r, "Failed to update post", http.StatusInternalServerError, err)
		return
	}
	if affected == 0 {
		middlewares.HttpError(w, r, "Post not found", http.StatusNotFound, fmt.Errorf("post %d does not exist", id))
		return
	}

	h.invalidate(r.Context(), id)
	middlewares.RespondJSON(w, nil, http.StatusNoContent)
}

func (h *PostHandler) DeletePostAPI(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseID(r.URL.Query().Get("id"))
	if err != nil {
		middlewares.HttpError(w, r, "Invalid ID parameter", http.StatusBadRequest, err)
		return
	}

	affected, err := h.Store.DeletePost(r.Context(), id)
	if err != nil {
		middlewares.HttpError(w, r, "Failed to delete post", http.StatusInternalServerError, err)
		return
	}
	if affected == 0 {
		middlewares.HttpError(w, r, "Post not found", http.StatusNotFound, fmt.Errorf("post %d does not exist", id))
		return
	}

	h.invalidate(r.Context(), id)
	middlewares.RespondJSON(w, nil, http.StatusNoContent)
}

func decodePostInput(w http.ResponseWriter, r *http.Request) (models.PostInput, bool) {
	var input models.PostInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		middlewares.HttpError(w, r, "Invalid JSON payload", http.StatusBadRequest, err)
		return models.PostInput{}, false
	}

	input, err := validation.ValidatePost(input)
	if err != nil {
		middlewares.HttpError(w, r, err.Error(), http.StatusBadRequest, err)
		return models.PostInput{}, false
	}
	return input, true
}

// Healthz reports whether the database is reachable.
func (h *PostHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		middlewares.HttpError(w, r, "Database unavailable", http.StatusServiceUnavailable, err)
		return
	}
	middlewares.RespondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
