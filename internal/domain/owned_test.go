package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOwnedBy(t *testing.T) {
	tests := []struct {
		name   string
		doc    Owned
		userID string
		want   bool
	}{
		{"bug owner", Bug{ID: "b1", User: "u1"}, "u1", true},
		{"bug stranger", Bug{ID: "b1", User: "u1"}, "u2", false},
		{"tag owner", Tag{ID: "t1", User: "u1"}, "u1", true},
		{"user is own owner", User{ID: "u1"}, "u1", true},
		{"other user", User{ID: "u1"}, "u2", false},
		{"empty requester", Bug{ID: "b1"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OwnedBy(tt.doc, tt.userID))
		})
	}
}

func TestKind_Plural(t *testing.T) {
	assert.Equal(t, "bugs", KindBug.Plural())
	assert.Equal(t, "tags", KindTag.Plural())
	assert.Equal(t, "users", KindUser.Plural())
}

func TestBug_TouchUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, loc)

	var b Bug
	b.Touch(now)

	assert.Equal(t, time.UTC, b.LastModified.Location())
	assert.True(t, now.Equal(b.LastModified))
}
