package pin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDiffer []Property

func (f fakeDiffer) Properties() []Property {
	return f
}

func TestChanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		old      Differ
		updated  Differ
		expected []string
	}{
		{
			name: "no previous entity lists everything",
			old:  nil,
			updated: fakeDiffer{
				{Label: "revision", Value: "abc"},
				{Label: "timestamp", Value: AbsentValue},
			},
			expected: []string{
				"revision: abc",
				"timestamp: N/A",
			},
		},
		{
			name: "unchanged properties are skipped",
			old: fakeDiffer{
				{Label: "revision", Value: "abc"},
				{Label: "timestamp", Value: "2024-01-01T00:00:00Z"},
			},
			updated: fakeDiffer{
				{Label: "revision", Value: "def"},
				{Label: "timestamp", Value: "2024-01-01T00:00:00Z"},
			},
			expected: []string{
				"revision: abc -> def",
			},
		},
		{
			name: "new property without old counterpart",
			old: fakeDiffer{
				{Label: "revision", Value: "abc"},
			},
			updated: fakeDiffer{
				{Label: "revision", Value: "abc"},
				{Label: "url", Value: "https://example.com/a.tar.gz"},
			},
			expected: []string{
				"url: https://example.com/a.tar.gz",
			},
		},
		{
			name: "identical entities produce no lines",
			old: fakeDiffer{
				{Label: "revision", Value: "abc"},
			},
			updated: fakeDiffer{
				{Label: "revision", Value: "abc"},
			},
			expected: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.expected, Changes(tc.old, tc.updated))
		})
	}
}
