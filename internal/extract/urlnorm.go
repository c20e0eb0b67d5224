package extract

import (
	"regexp"
	"strings"
)

// paramPatterns replace each parameter placeholder style with the literal
// ":param" token. Order matters twice over: "${expr}" must run before
// "{name}" so the template form is consumed whole instead of leaving a
// stray "$", and the braced/typed forms must run before the bare ":name"
// and "*name" forms so that, e.g., "<int:id>" is not left as a dangling
// ":id".
var paramPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\{[^}]+\}`),              // ${expr}
	regexp.MustCompile(`\{[^}]+\}`),                // {name}
	regexp.MustCompile(`<[^:>]+:[^>]+>`),           // <type:name>
	regexp.MustCompile(`:[a-zA-Z_][a-zA-Z0-9_]*`),  // :name
	regexp.MustCompile(`\*[a-zA-Z_][a-zA-Z0-9_]*`), // *name
}

// NormalizeURL lowercases, strips a trailing slash, and replaces every
// parameter placeholder with ":param" so that cross-language endpoints join
// on a single canonical form.
func NormalizeURL(raw string) string {
	u := raw
	for _, p := range paramPatterns {
		u = p.ReplaceAllString(u, ":param")
	}
	u = strings.ToLower(u)
	if len(u) > 1 {
		u = strings.TrimRight(u, "/")
	}
	return u
}

// AdmitURL applies the URL admission filter: only URLs that look like API
// routes are recorded as endpoints, so asset paths and arbitrary string
// literals are not mistaken for routes.
func AdmitURL(raw string) bool {
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "/api/"),
		strings.HasPrefix(lower, "/v1/"),
		strings.HasPrefix(lower, "/v2/"),
		strings.HasPrefix(lower, "/v3/"),
		strings.Contains(lower, "/api/"),
		strings.HasPrefix(lower, "http://"),
		strings.HasPrefix(lower, "https://"),
		strings.Contains(raw, "[controller]"):
		return true
	}
	if strings.HasPrefix(raw, "/") && !strings.Contains(raw, ".") {
		return true
	}
	return false
}

// urlLiteralPattern extracts the first URL-like string literal from an
// expression: double-quoted, single-quoted containing '/' or "api" or
// "http", or backtick-quoted (template literal).
var urlLiteralPattern = regexp.MustCompile("\"([^\"]*)\"|'([^']*(?:/|api|http)[^']*)'|`([^`]*)`")

// FirstURLLiteral returns the first URL-shaped literal embedded in text, if
// any.
func FirstURLLiteral(text string) (string, bool) {
	m := urlLiteralPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	for _, g := range m[1:] {
		if g != "" {
			return g, true
		}
	}
	return "", false
}

// backendPathHints gates JS/TS server-route patterns: unless the file path
// looks server-side, a matched Express/Koa-style call is assumed to be a
// client fetch instead of a route definition.
var backendPathHints = []string{"server", "backend", "api", "routes", "controllers", "handlers"}

// LooksBackend applies the backend-only path heuristic.
func LooksBackend(filePath string) bool {
	lower := strings.ToLower(filePath)
	base := lower
	if idx := strings.LastIndexByte(lower, '/'); idx >= 0 {
		base = lower[idx+1:]
	}
	for _, hint := range backendPathHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return strings.HasPrefix(base, "server.") || strings.HasSuffix(base, ".server.ts") || strings.HasSuffix(base, ".server.js")
}
