package htmltext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertString(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		wantText  string
		wantLinks []string
	}{
		{
			name:      "headings paragraphs and links",
			html:      `<h2>Planning</h2><p>Start small.</p><p>Read <a href="/tools/notion">Notion</a>.</p>`,
			wantText:  "## Planning\n\nStart small.\n\nRead Notion.",
			wantLinks: []string{"/tools/notion"},
		},
		{
			name:     "scripts and styles dropped",
			html:     `<p>Hi<script>track()</script><style>p{}</style></p>`,
			wantText: "Hi",
		},
		{
			name:     "line break",
			html:     `<p>one<br>two</p>`,
			wantText: "one\ntwo",
		},
		{
			name:     "list items",
			html:     `<ul><li>One</li><li>Two</li></ul>`,
			wantText: "- One\n\n- Two",
		},
		{
			name:     "whitespace collapsed",
			html:     "<p>  lots   of\n\n  space  </p>",
			wantText: "lots of space",
		},
		{
			name:      "duplicate links kept once",
			html:      `<p><a href="/a">x</a> <a href="/a">y</a> <a href="/b">z</a></p>`,
			wantText:  "x y z",
			wantLinks: []string{"/a", "/b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ConvertString(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, res.Text)
			assert.Equal(t, tt.wantLinks, res.Links)
		})
	}
}

func TestConvertPlainText(t *testing.T) {
	res, err := ConvertString("just text")
	require.NoError(t, err)
	assert.Equal(t, "just text", res.Text)
	assert.Empty(t, res.Links)
}
