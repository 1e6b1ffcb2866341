package db

import (
	"context"
	"database/sql"
	"log"

	"blog/models"

	"github.com/pkg/errors"
)

// ErrCreatePost is returned by CreatePost when the insert was rolled back.
// The underlying storage error is logged, not returned.
var ErrCreatePost = errors.New("failed to create post")

const selectPosts = `SELECT id, title, content, created_at, updated_at FROM posts`

// CreatePost inserts a post stamped with the current UTC second and returns its id.
func (s *Store) CreatePost(ctx context.Context, title, content string) (int64, error) {
	now := formatTimestamp(s.now())

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO posts (title, content, created_at, updated_at) VALUES (?, ?, ?, ?)",
			title, content, now, now)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		log.Printf("database error creating post: %v", err)
		return 0, ErrCreatePost
	}

	return id, nil
}

// GetAllPosts returns every post, newest first. Posts created within the
// same second come back in reverse insertion order.
func (s *Store) GetAllPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, selectPosts+" ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, errors.Wrap(err, "error querying posts")
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating over rows")
	}
	return posts, nil
}

// GetPostByID returns the post with the given id. The bool is false when
// there is no such post.
func (s *Store) GetPostByID(ctx context.Context, id int64) (models.Post, bool, error) {
	rows, err := s.db.QueryContext(ctx, selectPosts+" WHERE id = ?", id)
	if err != nil {
		return models.Post{}, false, errors.Wrapf(err, "error querying post %d", id)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.Post{}, false, errors.Wrapf(err, "error querying post %d", id)
		}
		return models.Post{}, false, nil
	}

	post, err := scanPost(rows)
	if err != nil {
		return models.Post{}, false, err
	}
	return post, true, nil
}

// UpdatePost replaces title and content and refreshes updated_at.
// It returns the number of rows changed, 0 if id does not exist.
func (s *Store) UpdatePost(ctx context.Context, id int64, title, content string) (int64, error) {
	now := formatTimestamp(s.now())

	var affected int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE posts SET title = ?, content = ?, updated_at = ? WHERE id = ?",
			title, content, now, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to update post %d", id)
	}

	return affected, nil
}

// DeletePost removes the post and returns the number of rows deleted.
// Deleting a missing post is not an error.
func (s *Store) DeletePost(ctx context.Context, id int64) (int64, error) {
	var affected int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to delete post %d", id)
	}

	return affected, nil
}
