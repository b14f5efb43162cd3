package discovery

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strings"
)

// DefaultRouteTablePath is the Linux kernel IPv4 routing table.
const DefaultRouteTablePath = "/proc/net/route"

// RouteTableGateway reads the default gateway from the kernel routing table.
type RouteTableGateway struct {
	Path string
}

// NewRouteTableGateway returns a resolver reading path, or the kernel table when empty.
func NewRouteTableGateway(path string) *RouteTableGateway {
	if path == "" {
		path = DefaultRouteTablePath
	}
	return &RouteTableGateway{Path: path}
}

// DefaultGateway returns the gateway of the first default route, or "" when there is none.
func (g *RouteTableGateway) DefaultGateway(_ context.Context) (string, error) {
	f, err := os.Open(g.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open route table: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || fields[1] != "00000000" {
			continue
		}
		ip, err := parseHexIPv4(fields[2])
		if err != nil {
			return "", err
		}
		if ip.IsUnspecified() {
			continue
		}
		return ip.String(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read route table: %w", err)
	}
	return "", nil
}

// parseHexIPv4 decodes the little-endian hex form used by /proc/net/route.
func parseHexIPv4(s string) (net.IP, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != net.IPv4len {
		return nil, fmt.Errorf("invalid route address %q", s)
	}
	ip := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(ip, binary.LittleEndian.Uint32(raw))
	return ip, nil
}
