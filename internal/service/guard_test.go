package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/id"
	"github.com/bughive/bughive-server/internal/store"
)

func TestAssertOwner_Messages(t *testing.T) {
	tests := []struct {
		resource domain.Owned
		verb     Verb
		want     string
	}{
		{&domain.Bug{User: "a"}, VerbView, "a user can only view their bugs"},
		{&domain.Bug{User: "a"}, VerbDelete, "a user can only delete their bugs"},
		{&domain.Tag{User: "a"}, VerbUpdate, "a user can only update their tags"},
		{&domain.User{ID: "a"}, VerbDelete, "a user can only delete themselves"},
		{&domain.User{ID: "a"}, VerbView, "a user can only view themselves"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.NoError(t, AssertOwner(tt.resource, "a", tt.verb))

			err := AssertOwner(tt.resource, "b", tt.verb)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}

	assert.Error(t, AssertOwner(&domain.Bug{User: ""}, "", VerbView), "empty requester never owns")
}

func TestCollectOwnedReferences(t *testing.T) {
	env := setupServices(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	t1 := env.createTag(t, alice, "frontend")
	t2 := env.createTag(t, alice, "backend")
	foreign := env.createTag(t, bob, "bobs tag")

	ctx := context.Background()
	require.NoError(t, env.store.View(ctx, func(tx store.Tx) error {
		got, err := collectOwnedReferences(ctx, tx, []string{t2.ID, t1.ID, t2.ID}, domain.KindTag, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{t2.ID, t1.ID}, got, "input order, duplicates dropped")

		got, err = collectOwnedReferences(ctx, tx, nil, domain.KindTag, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)

		for _, bad := range []string{foreign.ID, id.New(), "zz", t1.ID[:23]} {
			_, err = collectOwnedReferences(ctx, tx, []string{t1.ID, bad}, domain.KindTag, alice.ID)
			assert.EqualError(t, err, "A tag is not a valid tag id")
		}

		// A tag id is not a bug id.
		_, ok := validateOwnedReference(ctx, tx, t1.ID, domain.KindBug, alice.ID)
		assert.False(t, ok)
		return nil
	}))
}

func TestDiff(t *testing.T) {
	removed, added := diff([]string{"a", "b", "c"}, []string{"c", "d", "d"})
	assert.Equal(t, []string{"a", "b"}, removed)
	assert.Equal(t, []string{"d"}, added)
}
