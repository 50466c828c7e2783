// Package soap implements the envelope encode/decode used for UPnP SOAP
// actions, per spec.md §6's "SOAP invocation" wire format.
package soap

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

const (
	envelopeNS  = "http://schemas.xmlsoap.org/soap/envelope/"
	encodingURI = "http://schemas.xmlsoap.org/soap/encoding/"
)

// Arg is one SOAP argument: an XML element whose local name is the
// argument name and whose character data is its value.
type Arg struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// Envelope is the outer SOAP envelope. Body.Action carries the raw inner
// element bytes so the caller can decode it against the specific action
// schema (spec.md's xmlProcessor hook, or a generic Args decode).
type Envelope struct {
	XMLName xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Envelope"`
	Body    struct {
		Action []byte `xml:",innerxml"`
	} `xml:"Body"`
}

// Fault is the SOAP Body contents on a UPnP error reply.
type Fault struct {
	XMLName     xml.Name `xml:"Fault"`
	FaultCode   string   `xml:"faultcode"`
	FaultString string   `xml:"faultstring"`
	Detail      struct {
		UPnPError UPnPErrorDetail `xml:"UPnPError"`
	} `xml:"detail"`
}

// UPnPErrorDetail is the UPnP-specific fault detail element.
type UPnPErrorDetail struct {
	XMLName     xml.Name `xml:"urn:schemas-upnp-org:control-1-0 UPnPError"`
	ErrorCode   int      `xml:"errorCode"`
	ErrorDesc   string   `xml:"errorDescription"`
}

// NewFault builds a SOAP fault body carrying a UPnP error code/desc.
func NewFault(faultString string, code int, desc string) Fault {
	f := Fault{FaultCode: "s:Client", FaultString: faultString}
	f.Detail.UPnPError = UPnPErrorDetail{ErrorCode: code, ErrorDesc: desc}
	return f
}

// EncodeAction marshals a named action with its arguments into the full
// envelope bytes POSTed to a control URL.
func EncodeAction(serviceType, action string, args []Arg) ([]byte, error) {
	var body bytes.Buffer
	body.WriteString(fmt.Sprintf(`<u:%s xmlns:u=%q>`, action, serviceType))
	for _, a := range args {
		enc := xml.NewEncoder(&body)
		if err := enc.Encode(a); err != nil {
			return nil, err
		}
	}
	body.WriteString(fmt.Sprintf(`</u:%s>`, action))

	return []byte(fmt.Sprintf(
		`<?xml version="1.0" encoding="utf-8" standalone="yes"?>`+
			`<s:Envelope xmlns:s=%q s:encodingStyle=%q><s:Body>%s</s:Body></s:Envelope>`,
		envelopeNS, encodingURI, body.String())), nil
}

// DecodeEnvelope parses r's bytes as a SOAP envelope, returning the raw
// inner action bytes for further decoding.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	err := xml.Unmarshal(data, &env)
	return env, err
}

// DecodeReplyArgs decodes a SOAP action-response body into flat
// (name,value) pairs, used by the control point's default reply
// processor (spec.md §4.6.2's "stream-parse the SOAP reply" path, done
// here with a bounded decoder rather than a full DOM for the common
// case of a handful of scalar arguments). actionInner is the whole
// <u:ActionNameResponse>...</u:ActionNameResponse> wrapper element, so
// args sit one level below the outermost element, which is skipped.
func DecodeReplyArgs(actionInner []byte) ([][2]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(actionInner))
	var args [][2]string
	var curName string
	var curVal bytes.Buffer
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				curName = t.Name.Local
				curVal.Reset()
			}
		case xml.CharData:
			if depth == 2 {
				curVal.Write(t)
			}
		case xml.EndElement:
			if depth == 2 {
				args = append(args, [2]string{curName, curVal.String()})
			}
			depth--
		}
	}
	return args, nil
}
