package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/normalize"
	"github.com/bughive/bughive-server/internal/store"
)

// tagColumns must match the scan order in scanTag.
const tagColumns = `id, title, bugs, user_id`

var tagUniqueColumns = map[string]string{
	"tags.title_key": "title",
}

type tags struct {
	q *sql.Tx
}

func scanTag(s scanner) (*domain.Tag, error) {
	var (
		t    domain.Tag
		bugs string
	)
	if err := s.Scan(&t.ID, &t.Title, &bugs, &t.User); err != nil {
		return nil, err
	}

	var err error
	if t.Bugs, err = decodeList(bugs); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tags) Get(ctx context.Context, id string) (*domain.Tag, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = ?`, id)
	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return t, err
}

// GetByTitle retrieves the owner's tag by normalized title.
func (r *tags) GetByTitle(ctx context.Context, owner, title string) (*domain.Tag, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE user_id = ? AND title_key = ?`, owner, normalize.Key(title))
	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return t, err
}

func (r *tags) Find(ctx context.Context, f store.Filter) ([]*domain.Tag, error) {
	if f.Empty() {
		return []*domain.Tag{}, nil
	}
	clause, args := where(f, "user_id", `EXISTS (SELECT 1 FROM json_each(tags.bugs) WHERE value = ?)`)
	return findAll(ctx, r.q, `SELECT `+tagColumns+` FROM tags`+clause+` ORDER BY id`, args, scanTag)
}

// Insert stores a tag. A duplicate title for the same owner is reported as
// a unique violation on "title".
func (r *tags) Insert(ctx context.Context, t *domain.Tag) error {
	bugs, err := encodeList(t.Bugs)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO tags (id, title, title_key, bugs, user_id)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Title, normalize.Key(t.Title), bugs, t.User,
	)
	return mapWriteError(err, tagUniqueColumns)
}

func (r *tags) Replace(ctx context.Context, t *domain.Tag) error {
	bugs, err := encodeList(t.Bugs)
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE tags SET title = ?, title_key = ?, bugs = ?, user_id = ?
		WHERE id = ?`,
		t.Title, normalize.Key(t.Title), bugs, t.User, t.ID,
	)
	if err != nil {
		return mapWriteError(err, tagUniqueColumns)
	}
	return requireAffected(res)
}

func (r *tags) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	return err
}
