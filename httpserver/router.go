// Package httpserver implements the non-blocking, single-threaded,
// multi-client HTTP server described in spec.md §4.4: a round-robin tick
// loop over accepted sessions, rewrite-then-match routing, and chunked or
// length-delimited reply helpers.
package httpserver

import "strings"

// Handler serves one matched request. Reply* methods on RequestContext
// are the only way a handler may write a response.
type Handler interface {
	Serve(ctx *RequestContext)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx *RequestContext)

func (f HandlerFunc) Serve(ctx *RequestContext) { f(ctx) }

// RouteEntry is a (path-pattern, method, optional MIME filter) -> handler
// tuple. The server owns RouteEntry instances; their lifetime equals the
// server's, matching spec.md's ownership note.
type RouteEntry struct {
	PathPattern string
	Method      string
	MIMEFilter  string // empty means "no filter"
	Handler     Handler
}

// RewriteRule replaces a request path with ToPath when FromPattern
// matches, applied before routing.
type RewriteRule struct {
	FromPattern string
	ToPath      string
}

// Router is the ordered collection of rewrite rules and route entries
// the server consults once per request.
type Router struct {
	rewrites []RewriteRule
	routes   []RouteEntry
}

func NewRouter() *Router {
	return &Router{}
}

// AddRewrite appends a rewrite rule. Rules are applied in insertion
// order; the first match wins, per spec.md §3.
func (r *Router) AddRewrite(from, to string) {
	r.rewrites = append(r.rewrites, RewriteRule{FromPattern: from, ToPath: to})
}

// Handle registers a route entry. Entries are matched in insertion
// order; the first match wins, per spec.md's route-matching invariant.
func (r *Router) Handle(pattern, method, mimeFilter string, h Handler) {
	r.routes = append(r.routes, RouteEntry{PathPattern: pattern, Method: method, MIMEFilter: mimeFilter, Handler: h})
}

// NormalizePath collapses consecutive '/' characters, per spec.md §4.4.
func NormalizePath(p string) string {
	if !strings.Contains(p, "//") {
		return p
	}
	var b strings.Builder
	prevSlash := false
	for _, c := range p {
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(c)
	}
	return b.String()
}

// applyRewrites applies the first matching rewrite rule to p. It is
// called exactly once per request and rewrites are not chained: if a
// rule's ToPath matches another rule's FromPattern, the second rule is
// not applied, so re-applying rewrites to an already-rewritten path can
// give a different result.
func (r *Router) applyRewrites(p string) string {
	for _, rule := range r.rewrites {
		if patternMatches(rule.FromPattern, p) {
			return rule.ToPath
		}
	}
	return p
}

// patternMatches implements spec.md's match rule: literal equality after
// normalization, or a trailing '*' wildcard matching any remainder.
func patternMatches(pattern, path string) bool {
	if strings.HasSuffix(pattern, "*") {
		prefix := pattern[:len(pattern)-1]
		return strings.HasPrefix(path, prefix)
	}
	return pattern == path
}

// Resolve normalizes, rewrites, then matches path/method/accept against
// the route table, returning the unique first-inserted matching entry,
// or ok=false on a miss. Route resolution consults at most one handler
// per request, per spec.md's invariant.
func (r *Router) Resolve(path, method, accept string) (RouteEntry, bool) {
	p := NormalizePath(path)
	p = r.applyRewrites(p)
	for _, entry := range r.routes {
		if !patternMatches(entry.PathPattern, p) {
			continue
		}
		if entry.Method != method {
			continue
		}
		if entry.MIMEFilter != "" && !strings.Contains(accept, entry.MIMEFilter) {
			continue
		}
		return entry, true
	}
	return RouteEntry{}, false
}
