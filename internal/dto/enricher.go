package dto

import (
	"context"
	"fmt"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/store"
)

// Enricher expands reference lists for client consumption.
//
//   - Batch fetching: one Find per collection, not per document
//   - Missing references are skipped, never an error
//   - Reads go through the caller's transaction, so the view is consistent
type Enricher struct {
	tx store.Tx
}

// NewEnricher creates an enricher reading through tx.
func NewEnricher(tx store.Tx) *Enricher {
	return &Enricher{tx: tx}
}

// Bugs expands the tags of every bug.
func (e *Enricher) Bugs(ctx context.Context, bugs []*domain.Bug) ([]*Bug, error) {
	var tagIDs []string
	for _, b := range bugs {
		tagIDs = append(tagIDs, b.Tags...)
	}
	tags, err := e.tagsByID(ctx, tagIDs)
	if err != nil {
		return nil, err
	}

	out := make([]*Bug, 0, len(bugs))
	for _, b := range bugs {
		view := &Bug{
			ID:           b.ID,
			Title:        b.Title,
			Description:  b.Description,
			LastModified: b.LastModified,
			References:   nonNil(b.References),
			Tags:         make([]TagSummary, 0, len(b.Tags)),
			User:         b.User,
		}
		for _, id := range b.Tags {
			if t, ok := tags[id]; ok {
				view.Tags = append(view.Tags, TagSummary{ID: t.ID, Title: t.Title})
			}
		}
		out = append(out, view)
	}
	return out, nil
}

// Bug expands a single bug.
func (e *Enricher) Bug(ctx context.Context, b *domain.Bug) (*Bug, error) {
	views, err := e.Bugs(ctx, []*domain.Bug{b})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// Tags expands the bugs of every tag.
func (e *Enricher) Tags(ctx context.Context, tags []*domain.Tag) ([]*Tag, error) {
	var bugIDs []string
	for _, t := range tags {
		bugIDs = append(bugIDs, t.Bugs...)
	}
	bugs, err := e.bugsByID(ctx, bugIDs)
	if err != nil {
		return nil, err
	}

	out := make([]*Tag, 0, len(tags))
	for _, t := range tags {
		view := &Tag{
			ID:    t.ID,
			Title: t.Title,
			Bugs:  make([]BugSummary, 0, len(t.Bugs)),
			User:  t.User,
		}
		for _, id := range t.Bugs {
			if b, ok := bugs[id]; ok {
				view.Bugs = append(view.Bugs, BugSummary{
					ID:           b.ID,
					Title:        b.Title,
					Description:  b.Description,
					LastModified: b.LastModified,
					References:   nonNil(b.References),
				})
			}
		}
		out = append(out, view)
	}
	return out, nil
}

// Tag expands a single tag.
func (e *Enricher) Tag(ctx context.Context, t *domain.Tag) (*Tag, error) {
	views, err := e.Tags(ctx, []*domain.Tag{t})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// Users expands the bugs and tags of every user.
func (e *Enricher) Users(ctx context.Context, users []*domain.User) ([]*User, error) {
	var bugIDs, tagIDs []string
	for _, u := range users {
		bugIDs = append(bugIDs, u.Bugs...)
		tagIDs = append(tagIDs, u.Tags...)
	}
	bugs, err := e.bugsByID(ctx, bugIDs)
	if err != nil {
		return nil, err
	}
	tags, err := e.tagsByID(ctx, tagIDs)
	if err != nil {
		return nil, err
	}

	out := make([]*User, 0, len(users))
	for _, u := range users {
		view := &User{
			ID:       u.ID,
			Username: u.Username,
			Name:     u.Name,
			Email:    u.Email,
			DarkMode: u.DarkMode,
			Bugs:     make([]UserBug, 0, len(u.Bugs)),
			Tags:     make([]UserTag, 0, len(u.Tags)),
		}
		for _, id := range u.Bugs {
			if b, ok := bugs[id]; ok {
				view.Bugs = append(view.Bugs, UserBug{
					ID:           b.ID,
					Title:        b.Title,
					Description:  b.Description,
					LastModified: b.LastModified,
					References:   nonNil(b.References),
					Tags:         nonNil(b.Tags),
				})
			}
		}
		for _, id := range u.Tags {
			if t, ok := tags[id]; ok {
				view.Tags = append(view.Tags, UserTag{ID: t.ID, Title: t.Title, Bugs: nonNil(t.Bugs)})
			}
		}
		out = append(out, view)
	}
	return out, nil
}

// User expands a single user.
func (e *Enricher) User(ctx context.Context, u *domain.User) (*User, error) {
	views, err := e.Users(ctx, []*domain.User{u})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (e *Enricher) bugsByID(ctx context.Context, ids []string) (map[string]*domain.Bug, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	bugs, err := e.tx.Bugs().Find(ctx, store.ByIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("fetch bugs: %w", err)
	}
	m := make(map[string]*domain.Bug, len(bugs))
	for _, b := range bugs {
		m[b.ID] = b
	}
	return m, nil
}

func (e *Enricher) tagsByID(ctx context.Context, ids []string) (map[string]*domain.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tags, err := e.tx.Tags().Find(ctx, store.ByIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("fetch tags: %w", err)
	}
	m := make(map[string]*domain.Tag, len(tags))
	for _, t := range tags {
		m[t.ID] = t
	}
	return m, nil
}
