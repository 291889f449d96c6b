package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/store"
)

// bugColumns must match the scan order in scanBug.
const bugColumns = `id, title, description, last_modified, refs, tags, user_id`

type bugs struct {
	q *sql.Tx
}

func scanBug(s scanner) (*domain.Bug, error) {
	var (
		b            domain.Bug
		lastModified string
		refs, tags   string
	)
	if err := s.Scan(&b.ID, &b.Title, &b.Description, &lastModified, &refs, &tags, &b.User); err != nil {
		return nil, err
	}

	var err error
	if b.LastModified, err = parseTime(lastModified); err != nil {
		return nil, err
	}
	if b.References, err = decodeList(refs); err != nil {
		return nil, err
	}
	if b.Tags, err = decodeList(tags); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bugs) Get(ctx context.Context, id string) (*domain.Bug, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+bugColumns+` FROM bugs WHERE id = ?`, id)
	b, err := scanBug(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return b, err
}

func (r *bugs) Find(ctx context.Context, f store.Filter) ([]*domain.Bug, error) {
	if f.Empty() {
		return []*domain.Bug{}, nil
	}
	clause, args := where(f, "user_id", `EXISTS (SELECT 1 FROM json_each(bugs.tags) WHERE value = ?)`)
	return findAll(ctx, r.q, `SELECT `+bugColumns+` FROM bugs`+clause+` ORDER BY id`, args, scanBug)
}

func (r *bugs) Insert(ctx context.Context, b *domain.Bug) error {
	refs, tags, err := encodeBugLists(b)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO bugs (id, title, description, last_modified, refs, tags, user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Title, b.Description, formatTime(b.LastModified), refs, tags, b.User,
	)
	return mapWriteError(err, nil)
}

func (r *bugs) Replace(ctx context.Context, b *domain.Bug) error {
	refs, tags, err := encodeBugLists(b)
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE bugs SET title = ?, description = ?, last_modified = ?, refs = ?, tags = ?, user_id = ?
		WHERE id = ?`,
		b.Title, b.Description, formatTime(b.LastModified), refs, tags, b.User, b.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *bugs) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM bugs WHERE id = ?`, id)
	return err
}

func encodeBugLists(b *domain.Bug) (refs, tags string, err error) {
	if refs, err = encodeList(b.References); err != nil {
		return "", "", err
	}
	if tags, err = encodeList(b.Tags); err != nil {
		return "", "", err
	}
	return refs, tags, nil
}
