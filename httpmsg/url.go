package httpmsg

import (
	"fmt"
	"strconv"
	"strings"
)

// URL is a parsed absolute URL: scheme, host, port, path, query. Port
// defaults to 80 when omitted, matching spec.md's Url data model.
type URL struct {
	Scheme string
	Host   string
	Port   int
	Path   string
	Query  string
}

// ParseURL parses an absolute http(s) URL. It is deliberately narrower
// than net/url.Parse: the control point only ever talks to device
// description, control and event-sub URLs, which are always absolute.
func ParseURL(raw string) (URL, error) {
	var u URL
	rest := raw
	idx := strings.Index(rest, "://")
	if idx < 0 {
		return u, fmt.Errorf("httpmsg: not an absolute URL: %q", raw)
	}
	u.Scheme = strings.ToLower(rest[:idx])
	rest = rest[idx+3:]

	pathIdx := strings.IndexAny(rest, "/?")
	hostport := rest
	if pathIdx >= 0 {
		hostport = rest[:pathIdx]
		rest = rest[pathIdx:]
	} else {
		rest = "/"
	}

	if qIdx := strings.IndexByte(rest, '?'); qIdx >= 0 {
		u.Path = rest[:qIdx]
		u.Query = rest[qIdx+1:]
	} else {
		u.Path = rest
	}
	if u.Path == "" {
		u.Path = "/"
	}

	if colon := strings.LastIndexByte(hostport, ':'); colon >= 0 {
		u.Host = hostport[:colon]
		port, err := strconv.Atoi(hostport[colon+1:])
		if err != nil {
			return u, fmt.Errorf("httpmsg: bad port in %q: %w", raw, err)
		}
		u.Port = port
	} else {
		u.Host = hostport
		u.Port = 80
	}
	return u, nil
}

// String renders the URL back to its wire form.
func (u URL) String() string {
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.Host)
	if u.Port != 0 && !(u.Scheme == "http" && u.Port == 80) {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(u.Port))
	}
	p := u.Path
	if p == "" {
		p = "/"
	}
	b.WriteString(p)
	if u.Query != "" {
		b.WriteByte('?')
		b.WriteString(u.Query)
	}
	return b.String()
}

// HostHeader renders the value for a Host header: "host:port", omitting
// the port when it's the scheme default.
func (u URL) HostHeader() string {
	if u.Port == 80 {
		return u.Host
	}
	return u.Host + ":" + strconv.Itoa(u.Port)
}
