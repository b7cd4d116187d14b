package netstat

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"
)

// Constants from linux headers.
const (
	// Netlink family for socket diagnostics.
	NETLINK_SOCK_DIAG = 4

	// Message type: request sockets by family.
	SOCK_DIAG_BY_FAMILY = 20

	// Protocol
	IPPROTO_TCP = 6

	// TCP socket state from include/net/tcp_states.h in the Linux kernel.
	TCP_LISTEN = 10

	// inet_diag_req_v2 idiag_states bitmask
	TCPF_LISTEN = 1 << TCP_LISTEN
)

// inet_diag_req_v2 structure (from linux/inet_diag.h).
type inetDiagReqV2 struct {
	Family   uint8
	Protocol uint8
	Ext      uint8
	Pad      uint8
	States   uint32
	ID       inetDiagSockID
}

type inetDiagSockID struct {
	SPort  [2]byte
	DPort  [2]byte
	Src    [16]byte
	Dst    [16]byte
	If     uint32
	Cookie [2]uint32
}

// ListenersNetlink dumps the set of locally listening TCP ports
// directly from the kernel via the sock-diag netlink interface. It
// errors when netlink is not accessible, in which case the caller is
// supposed to use the dial fallback.
func ListenersNetlink() (map[uint16]bool, error) {
	ret := make(map[uint16]bool)
	for _, family := range []uint8{unix.AF_INET, unix.AF_INET6} {
		ports, err := ss(family)
		if err != nil {
			return nil, fmt.Errorf("dump socket statistics for family %d: %w", family, err)
		}
		for _, p := range ports {
			ret[p] = true
		}
	}
	return ret, nil
}

func ss(family uint8) ([]uint16, error) {
	// Open a NETLINK_SOCK_DIAG connection.
	c, err := netlink.Dial(NETLINK_SOCK_DIAG, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer func() {
		_ = c.Close()
	}()

	// Build request: inet_diag_req_v2
	req := inetDiagReqV2{
		Family:   family,
		Protocol: IPPROTO_TCP,
		States:   TCPF_LISTEN,
		// ID is zeroed: wildcard (match all).
	}

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.NativeEndian, req); err != nil {
		return nil, fmt.Errorf("marshal req: %w", err)
	}

	msg := netlink.Message{
		Header: netlink.Header{
			Type:  SOCK_DIAG_BY_FAMILY,
			Flags: netlink.Request | netlink.Dump,
		},
		Data: buf.Bytes(),
	}
	msgs, err := c.Execute(msg)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	// Parse replies. The reply payload is an inet_diag_msg, the source
	// port sits at bytes 4:6 in network byte order.
	ports := make([]uint16, 0, len(msgs))
	for _, m := range msgs {
		if m.Header.Type == netlink.Done {
			continue
		}
		if len(m.Data) < 36 {
			continue
		}
		ports = append(ports, binary.BigEndian.Uint16(m.Data[4:6]))
	}
	return ports, nil
}
