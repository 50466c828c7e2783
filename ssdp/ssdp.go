// Package ssdp defines the external collaborator interface the control
// point discovers devices through (spec.md §1: "out of scope ... exposes
// a byte-oriented datagram interface") and one concrete UDP multicast
// implementation of it.
package ssdp

import "time"

// MulticastAddr is the standard SSDP multicast group and port.
const MulticastAddr = "239.255.255.250:1900"

// Advertisement is one parsed SSDP datagram: either a search response or
// a NOTIFY announcement.
type Advertisement struct {
	Location string
	ST       string // search target / notification type
	USN      string
	NTS      string // "ssdp:alive" or "ssdp:byebye" for NOTIFY; empty for search responses
}

// Announcer is the interface ControlPoint consumes. It is deliberately
// narrow: send a search, and drain whatever arrived since the last call,
// non-blockingly, once per tick.
type Announcer interface {
	// Search sends an M-SEARCH for target with the given MX (max wait,
	// seconds) advertised to responders.
	Search(target string, mx int) error

	// Poll returns any advertisements received since the last call,
	// without blocking.
	Poll() ([]Advertisement, error)

	Close() error
}

// defaultMX is used when callers don't specify one explicitly.
const defaultMX = 3

// SearchWindow computes how long a caller should keep polling after
// Search, matching spec.md §4.6.1's [minWait, maxWait] discovery
// interval.
func SearchWindow(minWait, maxWait time.Duration) (time.Duration, time.Duration) {
	if minWait <= 0 {
		minWait = time.Second
	}
	if maxWait < minWait {
		maxWait = minWait
	}
	return minWait, maxWait
}
