// Package upnp holds the UPnP description/control/eventing data types
// shared by the control point: service descriptors, device description
// XML, SOAPACTION header parsing, GENA property sets, UUID formatting
// and UPnP error codes — grounded on the same-named package the teacher
// (anacrolix/dms) builds its device side on.
package upnp

import "encoding/xml"

// Service is a UPnP service descriptor as it appears in a device
// description's <serviceList>, opaque to the control point beyond the
// four fields it actually dereferences (service type and id, control and
// event-sub URLs; spec.md's ServiceInfo).
type Service struct {
	ServiceType string `xml:"serviceType"`
	ServiceId   string `xml:"serviceId"`
	SCPDURL     string `xml:"SCPDURL"`
	ControlURL  string `xml:"controlURL"`
	EventSubURL string `xml:"eventSubURL"`
}

// Icon is one entry of a device description's <iconList>.
type Icon struct {
	Width    int    `xml:"width"`
	Height   int    `xml:"height"`
	Depth    int    `xml:"depth"`
	Mimetype string `xml:"mimetype"`
	URL      string `xml:"url"`
}

// SpecVersion is the UPnP spec version a device description declares.
type SpecVersion struct {
	Major int `xml:"major"`
	Minor int `xml:"minor"`
}

// Device is the <device> element of a device description.
type Device struct {
	DeviceType      string    `xml:"deviceType"`
	FriendlyName    string    `xml:"friendlyName"`
	Manufacturer    string    `xml:"manufacturer"`
	ModelName       string    `xml:"modelName"`
	UDN             string    `xml:"UDN"`
	PresentationURL string    `xml:"presentationURL"`
	ServiceList     []Service `xml:"serviceList>service"`
	IconList        []Icon    `xml:"iconList>icon"`
}

// DeviceDesc is the root <root> element of a UPnP device description
// document, as fetched by ControlPoint.describeDevice.
type DeviceDesc struct {
	XMLName     xml.Name    `xml:"root"`
	SpecVersion SpecVersion `xml:"specVersion"`
	Device      Device      `xml:"device"`
}

// Variable names a GENA evented state variable.
type Variable struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// Property wraps one evented variable inside a <propertyset> entry.
type Property struct {
	Variable Variable `xml:",any"`
}

// PropertySet is the body of a GENA NOTIFY request, per spec.md §6.
type PropertySet struct {
	XMLName    xml.Name   `xml:"urn:schemas-upnp-org:event-1-0 propertyset"`
	Properties []Property `xml:"property"`
}

// DecodePropertySet parses a GENA NOTIFY body into (name,value) pairs.
func DecodePropertySet(body []byte) ([][2]string, error) {
	var ps PropertySet
	if err := xml.Unmarshal(body, &ps); err != nil {
		return nil, err
	}
	out := make([][2]string, 0, len(ps.Properties))
	for _, p := range ps.Properties {
		out = append(out, [2]string{p.Variable.XMLName.Local, p.Variable.Value})
	}
	return out, nil
}
