package datalist

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	cellPolicyOnce sync.Once
	cellPolicy     *bluemonday.Policy
)

// sanitizeMarkup cleans trusted-looking markup returned by computed columns.
// Inline SVG icons survive so status badges can render.
func sanitizeMarkup(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(cellSanitizer().Sanitize(trimmed))
}

func cellSanitizer() *bluemonday.Policy {
	cellPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowElements("svg", "g", "path", "circle", "rect", "title")
		policy.AllowAttrs("xmlns", "viewBox", "width", "height", "fill", "stroke", "aria-hidden", "class").OnElements("svg")
		for _, el := range []string{"path", "circle", "rect"} {
			policy.AllowAttrs("d", "cx", "cy", "r", "x", "y", "width", "height", "fill", "stroke", "class").OnElements(el)
		}
		policy.AllowAttrs("class").OnElements("span", "i", "b", "strong", "em")
		cellPolicy = policy
	})
	return cellPolicy
}
