// Package markdown renders notice descriptions into sanitized HTML.
package markdown

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// AllowedSchemes lists the URL schemes links and images may use.
var AllowedSchemes = []string{"http", "https", "mailto"}

// Renderer converts markdown to HTML that is safe to embed in a page.
type Renderer struct {
	policy *bluemonday.Policy
	text   *bluemonday.Policy
}

func NewRenderer() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowURLSchemes(AllowedSchemes...)
	policy.RequireParseableURLs(true)
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &Renderer{
		policy: policy,
		text:   bluemonday.StrictPolicy(),
	}
}

// HTML renders src and strips everything outside the allow-list.
func (r *Renderer) HTML(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	unsafe := blackfriday.Run([]byte(src), blackfriday.WithExtensions(blackfriday.CommonExtensions))
	return string(r.policy.SanitizeBytes(unsafe))
}

// PlainText renders src and drops all markup, collapsing whitespace.
func (r *Renderer) PlainText(src string) string {
	rendered := r.HTML(src)
	for _, tag := range []string{"</p>", "<br>", "<br/>", "</li>", "</h1>", "</h2>", "</h3>", "</div>"} {
		rendered = strings.ReplaceAll(rendered, tag, tag+" ")
	}
	clean := html.UnescapeString(r.text.Sanitize(rendered))
	return strings.Join(strings.Fields(clean), " ")
}
