package store_test

import (
	"testing"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestFilter_MatchBug(t *testing.T) {
	bug := &domain.Bug{ID: "b1", User: "u1", Tags: []string{"t1", "t2"}}

	tests := []struct {
		name   string
		filter store.Filter
		want   bool
	}{
		{"zero filter", store.Filter{}, true},
		{"owner", store.ByOwner("u1"), true},
		{"other owner", store.ByOwner("u2"), false},
		{"ref", store.ByRef("t2"), true},
		{"missing ref", store.ByRef("t3"), false},
		{"ids", store.ByIDs([]string{"b0", "b1"}), true},
		{"empty ids", store.ByIDs(nil), false},
		{"owner and ref", store.Filter{Owner: "u1", Ref: "t1"}, true},
		{"owner and missing ref", store.Filter{Owner: "u1", Ref: "t9"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.MatchBug(bug))
		})
	}
}

func TestFilter_MatchTagAndUser(t *testing.T) {
	tag := &domain.Tag{ID: "t1", User: "u1", Bugs: []string{"b1"}}
	user := &domain.User{ID: "u1", Bugs: []string{"b1"}, Tags: []string{"t1"}}

	assert.True(t, store.ByRef("b1").MatchTag(tag))
	assert.False(t, store.ByRef("b2").MatchTag(tag))
	assert.True(t, store.ByOwner("u1").MatchTag(tag))

	assert.True(t, store.ByOwner("u1").MatchUser(user))
	assert.True(t, store.ByRef("t1").MatchUser(user))
	assert.True(t, store.ByRef("b1").MatchUser(user))
	assert.False(t, store.ByRef("x").MatchUser(user))
}

func TestFilter_Empty(t *testing.T) {
	assert.False(t, store.Filter{}.Empty())
	assert.True(t, store.ByIDs(nil).Empty())
	assert.False(t, store.ByIDs([]string{"a"}).Empty())
}

func TestTagTitleKey(t *testing.T) {
	assert.Equal(t, store.TagTitleKey("u1", "Hardware"), store.TagTitleKey("u1", " HARDWARE "))
	assert.NotEqual(t, store.TagTitleKey("u1", "Hardware"), store.TagTitleKey("u2", "Hardware"))
}
