// Package transport implements the message receiver/sender collaborator of
// spec.md §4's component F: dispatch inbound submessages to endpoints by
// entity id, batch outbound submessages into RTPS messages, and the UDP
// multicast/unicast datagram collaborator itself (spec.md §1 lists the raw
// socket layer as an external collaborator the core consumes; this package
// is that collaborator, grounded on golang.org/x/net/ipv4 for multicast
// group membership).
package transport

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"

	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/telemetry"
)

// Socket is a UDPv4 unicast-or-multicast datagram endpoint.
type Socket struct {
	conn    *net.UDPConn
	pconn   *ipv4.PacketConn
	log     *telemetry.Logger
	maxSize int
}

// OpenUnicast binds a unicast UDPv4 socket on port.
func OpenUnicast(port int) (*Socket, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("transport: listen unicast: %w", err)
	}
	return &Socket{conn: conn, log: telemetry.NewLogger("transport"), maxSize: 65507}, nil
}

// OpenMulticast binds a multicast UDPv4 socket on port and joins group on
// every available interface.
func OpenMulticast(group net.IP, port int) (*Socket, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("transport: listen multicast: %w", err)
	}
	pconn := ipv4.NewPacketConn(conn)
	ifaces, err := net.Interfaces()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: list interfaces: %w", err)
	}
	joined := false
	for i := range ifaces {
		ifi := ifaces[i]
		if ifi.Flags&net.FlagMulticast == 0 || ifi.Flags&net.FlagUp == 0 {
			continue
		}
		if err := pconn.JoinGroup(&ifi, &net.UDPAddr{IP: group}); err == nil {
			joined = true
		}
	}
	if !joined {
		if err := pconn.JoinGroup(nil, &net.UDPAddr{IP: group}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("transport: join group: %w", err)
		}
	}
	return &Socket{conn: conn, pconn: pconn, log: telemetry.NewLogger("transport"), maxSize: 65507}, nil
}

// Close releases the underlying socket.
func (s *Socket) Close() error { return s.conn.Close() }

// Send writes one datagram to dst.
func (s *Socket) Send(dst rtps.Locator, payload []byte) error {
	addr := &net.UDPAddr{IP: locatorIP(dst), Port: int(dst.Port)}
	_, err := s.conn.WriteToUDP(payload, addr)
	return err
}

// Datagram is one received UDP payload plus its source.
type Datagram struct {
	Payload []byte
	Source  rtps.Locator
}

// Receive blocks for the next datagram.
func (s *Socket) Receive() (Datagram, error) {
	buf := make([]byte, s.maxSize)
	n, addr, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		return Datagram{}, err
	}
	var ip [4]byte
	copy(ip[:], addr.IP.To4())
	return Datagram{Payload: buf[:n], Source: rtps.LocatorFromUDPv4(ip, uint32(addr.Port))}, nil
}

func locatorIP(l rtps.Locator) net.IP {
	return net.IPv4(l.Address[12], l.Address[13], l.Address[14], l.Address[15])
}
