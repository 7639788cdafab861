package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected EntityID
		wantErr  bool
	}{
		{
			name:     "current generation",
			input:    "1-12345",
			expected: EntityID{ID: 12345, Version: VersionCurrent},
		},
		{
			name:     "pre-migration generation",
			input:    "0-42",
			expected: EntityID{ID: 42, Version: VersionPre},
		},
		{
			name:     "legacy bare integer parses as pre-migration",
			input:    "42",
			expected: EntityID{ID: 42, Version: VersionPre},
		},
		{
			name:     "zero id",
			input:    "1-0",
			expected: EntityID{ID: 0, Version: VersionCurrent},
		},
		{
			name:    "unknown version tag",
			input:   "2-42",
			wantErr: true,
		},
		{
			name:    "textual version tag",
			input:   "v1-42",
			wantErr: true,
		},
		{
			name:    "missing id",
			input:   "1-",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "non-numeric id",
			input:   "1-abc",
			wantErr: true,
		},
		{
			name:    "negative legacy id",
			input:   "-42",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseEntityID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidEntityID)
				assert.False(t, ValidEntityID(tt.input))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, id)
			assert.True(t, ValidEntityID(tt.input))
		})
	}
}

func TestEntityIDRoundTrip(t *testing.T) {
	// serialize(parse(s)) == s for every canonical serialized id
	for _, s := range []string{"0-0", "0-1", "0-987654", "1-0", "1-1", "1-987654"} {
		id, err := ParseEntityID(s)
		require.NoError(t, err)
		assert.Equal(t, s, id.String())
	}
}

func TestEntityIDStructuralEquality(t *testing.T) {
	a, err := ParseEntityID("1-7")
	require.NoError(t, err)
	b := NewEntityID(7, VersionCurrent)

	// fresh value objects compare equal and collide as map keys
	assert.Equal(t, a, b)
	seen := map[EntityID]int{a: 1}
	seen[b]++
	assert.Len(t, seen, 1)
	assert.Equal(t, 2, seen[a])

	assert.NotEqual(t, b, NewEntityID(7, VersionPre))
}

func TestParseEntityIDs(t *testing.T) {
	t.Run("all valid", func(t *testing.T) {
		ids, err := ParseEntityIDs([]string{"0-1", "1-2", "3"})
		require.NoError(t, err)
		assert.Equal(t, []EntityID{
			{ID: 1, Version: VersionPre},
			{ID: 2, Version: VersionCurrent},
			{ID: 3, Version: VersionPre},
		}, ids)
	})

	t.Run("one malformed id rejects the whole list", func(t *testing.T) {
		ids, err := ParseEntityIDs([]string{"0-1", "9-2"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidEntityID)
		assert.Nil(t, ids)
	})
}
