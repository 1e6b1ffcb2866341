package db

import (
	"database/sql"
	"fmt"
	"time"

	"blog/models"

	"github.com/pkg/errors"
)

// TimeLayout is the on-disk format of created_at and updated_at, always UTC.
const TimeLayout = "2006-01-02 15:04:05"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "malformed timestamp %q", s)
	}
	return t, nil
}

// timestamp scans a TIMESTAMP column into a UTC time with second precision.
// go-sqlite3 already converts TIMESTAMP columns to time.Time, but the raw
// text form is accepted too. The driver yields the zero time for text it
// cannot parse, so a zero value is rejected.
type timestamp struct {
	t *time.Time
}

func (ts timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		if v.IsZero() {
			return errors.New("malformed timestamp")
		}
		*ts.t = v.UTC().Truncate(time.Second)
		return nil
	case string:
		t, err := parseTimestamp(v)
		if err != nil {
			return err
		}
		*ts.t = t
		return nil
	case []byte:
		t, err := parseTimestamp(string(v))
		if err != nil {
			return err
		}
		*ts.t = t
		return nil
	default:
		return fmt.Errorf("unsupported timestamp value %T", src)
	}
}

// scanPost reads the current row into a Post, matching columns by name.
func scanPost(rows *sql.Rows) (models.Post, error) {
	cols, err := rows.Columns()
	if err != nil {
		return models.Post{}, errors.Wrap(err, "error reading columns")
	}

	var post models.Post
	dest := make([]any, len(cols))
	for i, col := range cols {
		switch col {
		case "id":
			dest[i] = &post.ID
		case "title":
			dest[i] = &post.Title
		case "content":
			dest[i] = &post.Content
		case "created_at":
			dest[i] = timestamp{&post.CreatedAt}
		case "updated_at":
			dest[i] = timestamp{&post.UpdatedAt}
		default:
			dest[i] = new(any)
		}
	}

	if err := rows.Scan(dest...); err != nil {
		return models.Post{}, errors.Wrap(err, "error scanning row")
	}
	return post, nil
}
