package markdown

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTMLRendersMarkdown(t *testing.T) {
	r := NewRenderer()
	out := r.HTML("**Exam** on Monday\n\n- Hall A\n- Hall B")

	require.Contains(t, out, "<strong>Exam</strong>")
	require.Contains(t, out, "<li>Hall A</li>")
}

func TestHTMLListItemsHaveNoBreaks(t *testing.T) {
	out := NewRenderer().HTML("- Hall A\n- Hall B\n- Hall C")

	require.Contains(t, out, "<li>Hall A</li>")
	require.Contains(t, out, "<li>Hall B</li>")
	require.Contains(t, out, "<li>Hall C</li>")
	require.NotContains(t, out, "<br")
}

func TestHTMLDropsDisallowedSchemes(t *testing.T) {
	r := NewRenderer()

	out := r.HTML("[click](javascript:void) and [site](https://example.edu)")
	require.NotContains(t, out, "javascript:")
	require.Contains(t, out, `href="https://example.edu"`)
	require.Contains(t, out, `rel="nofollow`)

	out = r.HTML("<script>alert(1)</script>[mail](mailto:office@example.edu)")
	require.NotContains(t, out, "<script>")
	require.Contains(t, out, `href="mailto:office@example.edu"`)
}

func TestHTMLEmptyInput(t *testing.T) {
	require.Empty(t, NewRenderer().HTML("   \n"))
}

func TestPlainText(t *testing.T) {
	r := NewRenderer()
	require.Equal(t, "Heading Line one & two", r.PlainText("# Heading\n\nLine one &amp; two"))
}
