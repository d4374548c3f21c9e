package idx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tracelight/tracelight/pkg/idx"
)

func TestNewAndParse(t *testing.T) {
	id := idx.New()
	require.NotEmpty(t, id.String())
	require.False(t, id.IsZero())

	// Parse a newly generated string
	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestOrdering(t *testing.T) {
	a := idx.NewAt(time.Unix(1, 0).UTC())
	b := idx.NewAt(time.Unix(2, 0).UTC())

	// ULIDs embed the timestamp in the high bits, so plain string
	// comparison sorts them chronologically.
	require.Less(t, a.String(), b.String())
}

func TestTimeExtraction(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	id := idx.NewAt(at)

	// ULID time resolution is a millisecond.
	require.WithinDuration(t, at, id.Time(), time.Millisecond)
}

func TestParseRejectsGarbage(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"too short", "01HQ7T3Z1M"},
		{"invalid alphabet", "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZU"}, // 'U' is not in Crockford base32
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := idx.Parse(tt.input)
			require.ErrorIs(t, err, idx.ErrInvalid)
		})
	}
}

func TestMustParse(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		id := idx.MustParse("01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV")
		require.Equal(t, "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", id.String())
	})

	t.Run("invalid panics", func(t *testing.T) {
		require.Panics(t, func() { idx.MustParse("not-a-ulid") })
	})
}

func TestZero(t *testing.T) {
	require.True(t, idx.Zero.IsZero())
	require.True(t, idx.Zero.Time().IsZero())
}
