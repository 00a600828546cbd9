package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/resource-showcase/internal/apperror"
	"github.com/sakif/resource-showcase/internal/model"
	"github.com/sakif/resource-showcase/internal/repository"
)

// Compile-time check that *DB satisfies the repository contract.
var _ repository.ResourceRepository = (*DB)(nil)

const resourceColumns = `id, title, description, media_url, media_type, category,
	tags, resource_url, created_at, is_published, featured`

// rowScanner is the common subset of *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(s rowScanner) (model.Resource, error) {
	var (
		r         model.Resource
		tagsJSON  string
		createdMS int64
	)
	if err := s.Scan(
		&r.ID, &r.Title, &r.Description, &r.MediaURL, &r.MediaType, &r.Category,
		&tagsJSON, &r.ResourceURL, &createdMS, &r.IsPublished, &r.Featured,
	); err != nil {
		return model.Resource{}, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
		return model.Resource{}, fmt.Errorf("decoding tags of %s: %w", r.ID, err)
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	r.CreatedAt = time.UnixMilli(createdMS).UTC()
	return r, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Create inserts a new resource, assigning its ID and CreatedAt.
//
// xid IDs are 20 URL-safe characters and sort by creation time, which also
// makes them a sensible tie-breaker for equal timestamps.
func (db *DB) Create(ctx context.Context, r *model.Resource) error {
	r.ID = xid.New().String()
	r.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if r.Tags == nil {
		r.Tags = []string{}
	}

	tags, err := encodeTags(r.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO resources (`+resourceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Description, r.MediaURL, string(r.MediaType), string(r.Category),
		tags, r.ResourceURL, r.CreatedAt.UnixMilli(), r.IsPublished, r.Featured,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating resource: %w", err)
	}
	return nil
}

// GetByID retrieves a single resource. sql.ErrNoRows becomes NotFound.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Resource, error) {
	r, err := scanResource(db.conn.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("resource", id)
		}
		return nil, fmt.Errorf("sqlite: getting resource %s: %w", id, err)
	}
	return &r, nil
}

// Update writes only the fields present in patch.
//
// The SET clause is assembled from the non-nil fields, so a single UPDATE
// both applies the change and (through RowsAffected) tells us whether the row
// existed. id and created_at never appear in it.
func (db *DB) Update(ctx context.Context, id string, patch model.ResourcePatch) error {
	if patch.IsEmpty() {
		_, err := db.GetByID(ctx, id)
		return err
	}

	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.MediaURL != nil {
		add("media_url", *patch.MediaURL)
	}
	if patch.MediaType != nil {
		add("media_type", string(*patch.MediaType))
	}
	if patch.Category != nil {
		add("category", string(*patch.Category))
	}
	if patch.Tags != nil {
		tags, err := encodeTags(*patch.Tags)
		if err != nil {
			return fmt.Errorf("sqlite: encoding tags: %w", err)
		}
		add("tags", tags)
	}
	if patch.ResourceURL != nil {
		add("resource_url", *patch.ResourceURL)
	}
	if patch.IsPublished != nil {
		add("is_published", *patch.IsPublished)
	}
	if patch.Featured != nil {
		add("featured", *patch.Featured)
	}
	args = append(args, id)

	result, err := db.conn.ExecContext(ctx,
		`UPDATE resources SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating resource %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("resource", id)
	}
	return nil
}

// Delete removes a resource. Deleting a missing id is not an error.
func (db *DB) Delete(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting resource %s: %w", id, err)
	}
	return nil
}

// ListPublished returns one page of the public listing.
func (db *DB) ListPublished(ctx context.Context, q repository.PublishedQuery) (*repository.Page, error) {
	after, err := repository.DecodeCursor(q.Cursor)
	if err != nil {
		return nil, err
	}
	category := repository.NormalizeCategory(q.Category)

	fetch := func(ctx context.Context, after *repository.Cursor, n int) ([]model.Resource, error) {
		where := []string{"is_published = 1"}
		var args []any
		if category != "" {
			where = append(where, "category = ?")
			args = append(args, string(category))
		}
		if after != nil {
			ms := after.CreatedAt.UnixMilli()
			where = append(where, "(created_at < ? OR (created_at = ? AND id < ?))")
			args = append(args, ms, ms, after.ID)
		}
		args = append(args, n)
		return db.query(ctx,
			`SELECT `+resourceColumns+` FROM resources
			 WHERE `+strings.Join(where, " AND ")+`
			 ORDER BY created_at DESC, id DESC
			 LIMIT ?`, args...)
	}

	page, err := repository.CollectPage(ctx, fetch, q.Search, q.Limit, after)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing published resources: %w", err)
	}
	return page, nil
}

// ListAll returns every resource, newest first.
func (db *DB) ListAll(ctx context.Context) ([]model.Resource, error) {
	rs, err := db.query(ctx,
		`SELECT `+resourceColumns+` FROM resources ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing resources: %w", err)
	}
	return rs, nil
}

// ListFeatured returns published, featured resources, newest first.
func (db *DB) ListFeatured(ctx context.Context, limit int) ([]model.Resource, error) {
	rs, err := db.query(ctx,
		`SELECT `+resourceColumns+` FROM resources
		 WHERE is_published = 1 AND featured = 1
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing featured resources: %w", err)
	}
	return rs, nil
}

func (db *DB) query(ctx context.Context, query string, args ...any) ([]model.Resource, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Resource{}
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning resource row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating resources: %w", err)
	}
	return out, nil
}
