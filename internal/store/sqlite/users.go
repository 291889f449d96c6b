package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/store"
)

// userColumns must match the scan order in scanUser.
const userColumns = `id, username, name, email, password_hash, dark_mode, bugs, tags`

var userUniqueColumns = map[string]string{
	"users.username_key": "username",
	"users.email_key":    "email",
}

type users struct {
	q *sql.Tx
}

func scanUser(s scanner) (*domain.User, error) {
	var (
		u          domain.User
		bugs, tags string
	)
	if err := s.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.PasswordHash, &u.DarkMode, &bugs, &tags); err != nil {
		return nil, err
	}

	var err error
	if u.Bugs, err = decodeList(bugs); err != nil {
		return nil, err
	}
	if u.Tags, err = decodeList(tags); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *users) getWhere(ctx context.Context, cond string, arg any) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+cond, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return u, err
}

func (r *users) Get(ctx context.Context, id string) (*domain.User, error) {
	return r.getWhere(ctx, "id = ?", id)
}

func (r *users) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getWhere(ctx, "email_key = ?", store.EmailKey(email))
}

func (r *users) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getWhere(ctx, "username_key = ?", store.UsernameKey(username))
}

func (r *users) Find(ctx context.Context, f store.Filter) ([]*domain.User, error) {
	if f.Empty() {
		return []*domain.User{}, nil
	}
	clause, args := where(f, "id",
		`(EXISTS (SELECT 1 FROM json_each(users.bugs) WHERE value = ?) OR EXISTS (SELECT 1 FROM json_each(users.tags) WHERE value = ?))`)
	return findAll(ctx, r.q, `SELECT `+userColumns+` FROM users`+clause+` ORDER BY id`, args, scanUser)
}

func (r *users) Insert(ctx context.Context, u *domain.User) error {
	bugs, tags, err := encodeUserLists(u)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO users (id, username, username_key, name, email, email_key, password_hash, dark_mode, bugs, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, store.UsernameKey(u.Username), u.Name,
		u.Email, store.EmailKey(u.Email), u.PasswordHash, u.DarkMode, bugs, tags,
	)
	return mapWriteError(err, userUniqueColumns)
}

func (r *users) Replace(ctx context.Context, u *domain.User) error {
	bugs, tags, err := encodeUserLists(u)
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET username = ?, username_key = ?, name = ?, email = ?, email_key = ?,
			password_hash = ?, dark_mode = ?, bugs = ?, tags = ?
		WHERE id = ?`,
		u.Username, store.UsernameKey(u.Username), u.Name, u.Email, store.EmailKey(u.Email),
		u.PasswordHash, u.DarkMode, bugs, tags, u.ID,
	)
	if err != nil {
		return mapWriteError(err, userUniqueColumns)
	}
	return requireAffected(res)
}

func (r *users) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}

func encodeUserLists(u *domain.User) (bugs, tags string, err error) {
	if bugs, err = encodeList(u.Bugs); err != nil {
		return "", "", err
	}
	if tags, err = encodeList(u.Tags); err != nil {
		return "", "", err
	}
	return bugs, tags, nil
}

// requireAffected turns an UPDATE that matched no row into ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
