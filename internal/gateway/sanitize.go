package gateway

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText removes HTML elements from chat input and returns plain text.
// Entities are decoded, so text such as "&lt;b&gt;" comes back as a literal
// "<b>". Clients must escape the result when rendering it as HTML.
func SanitizeText(input string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
}
