package upnp

import "strings"

// FormatCallbackHeader renders the CALLBACK header value for a SUBSCRIBE
// request: each URL wrapped in angle brackets, concatenated with no
// separator, per the GENA wire format in spec.md §6.
func FormatCallbackHeader(urls []string) string {
	var b strings.Builder
	for _, u := range urls {
		b.WriteByte('<')
		b.WriteString(u)
		b.WriteByte('>')
	}
	return b.String()
}
