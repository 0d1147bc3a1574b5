package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromString(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected Target
	}{
		{
			name:     "phony target",
			raw:      "#all",
			expected: NewPhony("all"),
		},
		{
			name:     "variable target",
			raw:      "var(x)",
			expected: NewVariable("x"),
		},
		{
			name:     "variable with longer identifier",
			raw:      "var(out_dir)",
			expected: NewVariable("out_dir"),
		},
		{
			name:     "plain file path",
			raw:      "hello.txt",
			expected: NewFile("hello.txt"),
		},
		{
			name:     "nested file path",
			raw:      "dir/sub/out.dat",
			expected: NewFile("dir/sub/out.dat"),
		},
		{
			name:     "file path is normalized",
			raw:      "./dir//out.dat",
			expected: NewFile("dir/out.dat"),
		},
		{
			name:     "malformed var falls back to file",
			raw:      "var(a b)",
			expected: NewFile("var(a b)"),
		},
		{
			name:     "unclosed var falls back to file",
			raw:      "var(x",
			expected: NewFile("var(x"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FromString(tc.raw))
		})
	}
}

func TestString_RoundTrip(t *testing.T) {
	for _, raw := range []string{"#all", "var(x)", "hello.txt", "dir/out.dat"} {
		require.Equal(t, raw, FromString(raw).String())
	}
}

func TestKindPredicates(t *testing.T) {
	assert.True(t, NewFile("a").IsFile())
	assert.True(t, NewPhony("a").IsPhony())
	assert.True(t, NewVariable("a").IsVariable())
	assert.False(t, NewPhony("a").IsFile())
}

func TestPath_PanicsOnNonFile(t *testing.T) {
	assert.Panics(t, func() { NewPhony("a").Path() })
	assert.Equal(t, "hello.txt", NewFile("hello.txt").Path())
}

func TestNormalization_EquivalentSpellingsCompareEqual(t *testing.T) {
	assert.Equal(t, NewFile("dir/out"), FromString("./dir/out"))
	assert.NotEqual(t, NewFile("dir/out"), NewPhony("dir/out"))
}
