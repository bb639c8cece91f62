package chunker

import (
	"strings"
	"testing"

	"github.com/poiesic/folio/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "no blank-line run yields one chunk",
			text: "  To be, or not to be,\nthat is the question.\n\nWhether 'tis nobler  ",
			want: []string{"To be, or not to be,\nthat is the question.\n\nWhether 'tis nobler"},
		},
		{
			name: "two blank lines split",
			text: "SONNET 18\n\n\nShall I compare thee",
			want: []string{"SONNET 18", "Shall I compare thee"},
		},
		{
			name: "longer runs split once",
			text: "ACT I\n\n\n\n\n\nSCENE I",
			want: []string{"ACT I", "SCENE I"},
		},
		{
			name: "windows line endings",
			text: "first\r\n\r\n\r\nsecond\r\n\r\n\r\nthird",
			want: []string{"first", "second", "third"},
		},
		{
			name: "leading and trailing separators dropped",
			text: "\n\n\n\nonly\n\n\n\n",
			want: []string{"only"},
		},
		{
			name: "all whitespace yields nothing",
			text: " \n\n\n\t\n\n\n  ",
			want: nil,
		},
		{
			name: "empty input yields nothing",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.text)
			if tt.want == nil {
				assert.Empty(t, chunks)
				return
			}
			assert.Equal(t, tt.want, Texts(chunks))
		})
	}
}

func TestSplit_ChunkMetadata(t *testing.T) {
	chunks := Split("alpha\n\n\nbeta\n\n\ngamma")
	require.Len(t, chunks, 3)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, core.IDFromContent(c.Text), c.ID)
		assert.Equal(t, strings.TrimSpace(c.Text), c.Text)
		assert.NotEmpty(t, c.Text)
	}
}

func TestJoin_RoundTripPreservesCount(t *testing.T) {
	inputs := []string{
		"one",
		"one\n\n\ntwo\n\n\n\n\nthree",
		"HAMLET\n\nact\n\n\n\nOPHELIA\n\n\n   \n\n\nGHOST",
		"\r\n\r\n\r\nlead\r\n\r\n\r\n",
		"   ",
	}

	for _, in := range inputs {
		first := Split(in)
		second := Split(Join(first))
		assert.Len(t, second, len(first), "input %q", in)
		assert.Equal(t, Texts(first), Texts(second))
	}
}
