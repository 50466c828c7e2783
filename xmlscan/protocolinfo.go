// Package xmlscan implements the low-memory, token-emitting
// GetProtocolInfo streaming parser of spec.md §4.5: it extracts
// comma-separated protocol entries from <Source>/<Sink> elements without
// buffering the full response.
package xmlscan

import "strings"

// Role tags which element an entry came from.
type Role int

const (
	Source Role = iota
	Sink
)

func (r Role) String() string {
	if r == Source {
		return "SOURCE"
	}
	return "SINK"
}

// EntryFunc receives one flushed, trimmed, non-empty CSV entry and its
// role.
type EntryFunc func(entry string, role Role)

// collectState mirrors spec.md's CollectState enum.
type collectState int

const (
	looking collectState = iota
	inSource
	inSink
)

const (
	// windowSize bounds the LOOKING-state sliding window that searches
	// for "<Source" / "<Sink", per spec.md's memory discipline (64
	// chars suggested; kept a little larger to tolerate attributes
	// before the first '>').
	windowSize = 96
	// accumulatorCap bounds a single CSV entry, per spec.md's 128-byte
	// default.
	accumulatorCap = 128
)

var (
	sourceOpenTag  = "<Source"
	sinkOpenTag    = "<Sink"
	sourceCloseTag = "</Source>"
	sinkCloseTag   = "</Sink>"
)

// ProtocolInfoParser is a streaming scanner over an arbitrary byte
// reader, with no requirement that bytes arrive all at once — it is fed
// one buffer at a time via Feed, so a chunked HTTP body can be parsed
// byte-by-byte with the same result as if it arrived whole.
type ProtocolInfoParser struct {
	onEntry EntryFunc

	state collectState
	// window holds the unmatched tail of input while in 'looking',
	// bounded to windowSize.
	window []byte
	// acc accumulates the current CSV entry while collecting.
	acc []byte
	// closeMatch tracks how many bytes of the current state's closing
	// tag have been matched so far, for progressive matching with
	// rollback.
	closeMatch int
	// awaitingTagClose discards bytes between the matched "<Source"/
	// "<Sink" prefix and the '>' that ends the opening tag, so
	// attributes (or the bare '>') never leak into the accumulator.
	awaitingTagClose bool
}

// NewProtocolInfoParser constructs a parser that calls onEntry for each
// extracted, trimmed, non-empty CSV entry in document order.
func NewProtocolInfoParser(onEntry EntryFunc) *ProtocolInfoParser {
	return &ProtocolInfoParser{onEntry: onEntry}
}

// Feed processes buf incrementally. It may be called any number of times
// with arbitrarily small slices (including one byte at a time).
func (p *ProtocolInfoParser) Feed(buf []byte) {
	for _, c := range buf {
		p.feedByte(c)
	}
}

func (p *ProtocolInfoParser) feedByte(c byte) {
	switch p.state {
	case looking:
		p.window = append(p.window, c)
		if len(p.window) > windowSize {
			p.window = p.window[len(p.window)-windowSize:]
		}
		if hasSuffixFold(p.window, sourceOpenTag) {
			p.enterCollecting(inSource)
		} else if hasSuffixFold(p.window, sinkOpenTag) {
			p.enterCollecting(inSink)
		}
	case inSource:
		p.feedCollecting(c, sourceCloseTag, Source)
	case inSink:
		p.feedCollecting(c, sinkCloseTag, Sink)
	}
}

func (p *ProtocolInfoParser) enterCollecting(state collectState) {
	p.state = state
	p.window = p.window[:0]
	p.acc = p.acc[:0]
	p.closeMatch = 0
	p.awaitingTagClose = true
}

func (p *ProtocolInfoParser) feedCollecting(c byte, closeTag string, role Role) {
	if p.awaitingTagClose {
		if c == '>' {
			p.awaitingTagClose = false
		}
		return
	}
	if c == byte(closeTag[p.closeMatch]) {
		p.closeMatch++
		if p.closeMatch == len(closeTag) {
			p.flush(role)
			p.state = looking
			p.window = p.window[:0]
		}
		return
	}
	// Partial-match rollback: the prefix characters already consumed by
	// the failed end-tag match belong to the entry data, not the tag.
	if p.closeMatch > 0 {
		for i := 0; i < p.closeMatch; i++ {
			p.appendOrFlush(closeTag[i], role)
		}
		p.closeMatch = 0
	}
	// Re-evaluate c itself: it may start a fresh (possibly successful)
	// match of the close tag.
	if c == closeTag[0] {
		p.closeMatch = 1
		return
	}
	p.appendOrFlush(c, role)
}

func (p *ProtocolInfoParser) appendOrFlush(c byte, role Role) {
	if c == ',' {
		p.flush(role)
		return
	}
	if len(p.acc) < accumulatorCap {
		p.acc = append(p.acc, c)
	}
}

func (p *ProtocolInfoParser) flush(role Role) {
	entry := strings.TrimSpace(string(p.acc))
	p.acc = p.acc[:0]
	if entry == "" {
		return
	}
	p.onEntry(entry, role)
}

// hasSuffixFold reports whether buf ends with tag, case-insensitively
// (UPnP element names are technically case-sensitive XML, but some
// devices are sloppy; tolerating it costs nothing here).
func hasSuffixFold(buf []byte, tag string) bool {
	if len(buf) < len(tag) {
		return false
	}
	return strings.EqualFold(string(buf[len(buf)-len(tag):]), tag)
}
