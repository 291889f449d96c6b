package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FormatAndOrder(t *testing.T) {
	prev := ""
	for i := 0; i < 100; i++ {
		id := New()
		assert.Len(t, id, 24)
		assert.True(t, Valid(id), "ID: %s", id)
		assert.Greater(t, id, prev, "ids should increase")
		prev = id
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"object id", "5f1d7f3e9b1e8a3c4d2b1a09", true},
		{"upper case hex", "5F1D7F3E9B1E8A3C4D2B1A09", true},
		{"too short", "5f1d7f3e", false},
		{"too long", "5f1d7f3e9b1e8a3c4d2b1a0900", false},
		{"not hex", "zzzzzzzzzzzzzzzzzzzzzzzz", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.in))
		})
	}
}

func TestGenerate_Format(t *testing.T) {
	id, err := Generate("token")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "token-"))
	assert.Len(t, strings.TrimPrefix(id, "token-"), 21)
}

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := Generate("token")
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}
}

func TestParse_Canonicalizes(t *testing.T) {
	got, ok := Parse("5F1D7F3E9B1E8A3C4D2B1A09")
	require.True(t, ok)
	assert.Equal(t, "5f1d7f3e9b1e8a3c4d2b1a09", got)

	_, ok = Parse("bug-1")
	assert.False(t, ok)
}

func BenchmarkNew(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = New()
	}
}
