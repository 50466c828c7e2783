package ssdp

import (
	"context"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/go-dlna/dlnacp/dlnaerr"
)

// UDPAnnouncer is the default Announcer: a single UDP socket bound to
// the SSDP multicast port, joined to the multicast group on iface, with
// SO_REUSEADDR so multiple control points can share the port on one
// host — the low-level socket-option wiring spec.md's design notes leave
// to the concrete transport rather than the core.
type UDPAnnouncer struct {
	conn    *net.UDPConn
	pconn   *ipv4.PacketConn
	iface   *net.Interface
	group   *net.UDPAddr
	localIP net.IP
}

// NewUDPAnnouncer binds to iface (nil selects the default multicast-
// capable interface) and joins the SSDP multicast group.
func NewUDPAnnouncer(iface *net.Interface) (*UDPAnnouncer, error) {
	group, err := net.ResolveUDPAddr("udp4", MulticastAddr)
	if err != nil {
		return nil, err
	}

	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", group.Port))
	if err != nil {
		return nil, dlnaerr.TransportError{Op: "ssdp-listen", Err: err}
	}
	conn := pc.(*net.UDPConn)

	p := ipv4.NewPacketConn(conn)
	if err := p.JoinGroup(iface, &net.UDPAddr{IP: group.IP}); err != nil {
		conn.Close()
		return nil, dlnaerr.TransportError{Op: "ssdp-join-group", Err: err}
	}
	if err := p.SetMulticastTTL(4); err != nil {
		conn.Close()
		return nil, dlnaerr.TransportError{Op: "ssdp-set-ttl", Err: err}
	}

	var localIP net.IP
	if iface != nil {
		if addrs, err := iface.Addrs(); err == nil {
			for _, a := range addrs {
				if ipn, ok := a.(*net.IPNet); ok && ipn.IP.To4() != nil {
					localIP = ipn.IP
					break
				}
			}
		}
	}

	return &UDPAnnouncer{conn: conn, pconn: p, iface: iface, group: group, localIP: localIP}, nil
}

func (a *UDPAnnouncer) Search(target string, mx int) error {
	if mx <= 0 {
		mx = defaultMX
	}
	msg := fmt.Sprintf("M-SEARCH * HTTP/1.1\r\n"+
		"HOST: %s\r\n"+
		"MAN: \"ssdp:discover\"\r\n"+
		"MX: %d\r\n"+
		"ST: %s\r\n\r\n", MulticastAddr, mx, target)
	_, err := a.conn.WriteTo([]byte(msg), a.group)
	if err != nil {
		return dlnaerr.TransportError{Op: "ssdp-search", Err: err}
	}
	return nil
}

// Poll drains every datagram currently queued, without blocking beyond a
// short per-read deadline, and parses each into an Advertisement.
func (a *UDPAnnouncer) Poll() ([]Advertisement, error) {
	var out []Advertisement
	buf := make([]byte, 2048)
	for {
		if err := a.conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
			return out, err
		}
		n, _, err := a.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return out, nil
			}
			return out, dlnaerr.TransportError{Op: "ssdp-read", Err: err}
		}
		if adv, ok := parseDatagram(buf[:n]); ok {
			out = append(out, adv)
		}
	}
}

func (a *UDPAnnouncer) Close() error {
	return a.conn.Close()
}

// parseDatagram parses either an M-SEARCH response ("HTTP/1.1 200 OK")
// or a NOTIFY announcement into an Advertisement, extracting LOCATION,
// ST/NT, USN and NTS.
func parseDatagram(data []byte) (Advertisement, bool) {
	lines := strings.Split(string(data), "\r\n")
	if len(lines) == 0 {
		return Advertisement{}, false
	}
	var adv Advertisement
	for _, line := range lines[1:] {
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		name := strings.ToUpper(strings.TrimSpace(line[:colon]))
		value := strings.TrimSpace(line[colon+1:])
		switch name {
		case "LOCATION":
			adv.Location = value
		case "ST", "NT":
			adv.ST = value
		case "USN":
			adv.USN = value
		case "NTS":
			adv.NTS = value
		}
	}
	if adv.Location == "" {
		return Advertisement{}, false
	}
	return adv, true
}
