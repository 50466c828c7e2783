package upnp

import (
	"fmt"
	"strconv"
	"strings"
)

// ServiceType is a parsed UPnP service type URN, e.g.
// "urn:schemas-upnp-org:service:ContentDirectory:1".
type ServiceType struct {
	URN     string
	Domain  string
	Type    string
	Version int
}

// ParseServiceType parses a service type URN string.
func ParseServiceType(urn string) (ServiceType, error) {
	parts := strings.Split(urn, ":")
	if len(parts) != 5 || parts[0] != "urn" || parts[2] != "service" {
		return ServiceType{}, fmt.Errorf("upnp: malformed service type %q", urn)
	}
	version, err := strconv.Atoi(parts[4])
	if err != nil {
		return ServiceType{}, fmt.Errorf("upnp: bad version in service type %q: %w", urn, err)
	}
	return ServiceType{URN: urn, Domain: parts[1], Type: parts[3], Version: version}, nil
}

// SoapAction is the parsed value of a SOAPACTION header:
// "<serviceType>#<actionName>".
type SoapAction struct {
	ServiceURN ServiceType
	Action     string
}

// FormatSoapActionHeader renders the SOAPACTION header value for a
// control request, per spec.md §6: `"<serviceType>#<action>"`.
func FormatSoapActionHeader(serviceType, action string) string {
	return fmt.Sprintf("%q", serviceType+"#"+action)
}

// ParseActionHTTPHeader parses a SOAPACTION header value, accepting the
// quoted form devices normally send.
func ParseActionHTTPHeader(v string) (SoapAction, error) {
	v = strings.Trim(v, `"`)
	idx := strings.LastIndexByte(v, '#')
	if idx < 0 {
		return SoapAction{}, fmt.Errorf("upnp: malformed SOAPACTION header %q", v)
	}
	urn, err := ParseServiceType(v[:idx])
	if err != nil {
		return SoapAction{}, err
	}
	return SoapAction{ServiceURN: urn, Action: v[idx+1:]}, nil
}
