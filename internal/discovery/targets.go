package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	inverrors "github.com/anstrom/netinventory/internal/errors"
)

// A /16 is the largest block the address-resolution sweep will enumerate.
// Ping sweeps and deep scans hand the CIDR to nmap and have no limit.
const maxSweepHostBits = 16

// ErrSubnetTooLarge is returned by ExpandTarget for blocks wider than a /16.
var ErrSubnetTooLarge = errors.New("subnet too large to enumerate")

// linkLocal is 169.254.0.0/16; addresses in it never describe a routable subnet.
var linkLocal = &net.IPNet{IP: net.IPv4(169, 254, 0, 0).To4(), Mask: net.CIDRMask(16, 32)}

// ValidateTarget reports whether target is an IPv4 address, an IPv4 CIDR of
// any size or an nmap-style last-octet range such as 192.168.1.10-50.
func ValidateTarget(target string) error {
	var err error
	trimmed := strings.TrimSpace(target)
	switch {
	case trimmed == "":
		err = errors.New("empty target")
	case strings.Contains(trimmed, "/"):
		_, err = parseIPv4CIDR(trimmed)
	case strings.Contains(trimmed, "-"):
		_, _, err = parseRange(trimmed)
	case net.ParseIP(trimmed).To4() == nil:
		err = fmt.Errorf("invalid IPv4 address %q", trimmed)
	}
	if err != nil {
		invalid := inverrors.ErrInvalidTarget(target)
		invalid.Cause = err
		return invalid
	}
	return nil
}

// ExpandTarget expands a target into its usable IPv4 host addresses.
// Network and broadcast addresses are skipped for CIDR blocks larger than /31.
// Blocks wider than a /16 fail with ErrSubnetTooLarge.
func ExpandTarget(target string) ([]net.IP, error) {
	if err := ValidateTarget(target); err != nil {
		return nil, err
	}
	target = strings.TrimSpace(target)
	if strings.Contains(target, "/") {
		return expandCIDR(target)
	}
	if strings.Contains(target, "-") {
		return expandRange(target)
	}
	return []net.IP{net.ParseIP(target).To4()}, nil
}

func parseIPv4CIDR(cidr string) (*net.IPNet, error) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}
	if ip.To4() == nil {
		return nil, fmt.Errorf("%s is not an IPv4 network", cidr)
	}
	return ipnet, nil
}

func expandCIDR(cidr string) ([]net.IP, error) {
	ipnet, err := parseIPv4CIDR(cidr)
	if err != nil {
		return nil, err
	}

	ones, bits := ipnet.Mask.Size()
	if bits-ones > maxSweepHostBits {
		return nil, fmt.Errorf("%w: %s (max /%d)", ErrSubnetTooLarge, cidr, bits-maxSweepHostBits)
	}
	start := ipv4ToUint(ipnet.IP)
	size := uint32(1) << uint(bits-ones)

	hosts := make([]net.IP, 0, size)
	for offset := uint32(0); offset < size; offset++ {
		if size > 2 && (offset == 0 || offset == size-1) {
			continue
		}
		hosts = append(hosts, uintToIPv4(start+offset))
	}
	return hosts, nil
}

// parseRange reads the a.b.c.x-y form, where only the last octet varies.
func parseRange(target string) (net.IP, int, error) {
	base, last, _ := strings.Cut(target, "-")
	first := net.ParseIP(base).To4()
	if first == nil {
		return nil, 0, fmt.Errorf("invalid range start in %q", target)
	}
	end, err := strconv.Atoi(last)
	if err != nil || end < 0 || end > 255 {
		return nil, 0, fmt.Errorf("invalid range end in %q", target)
	}
	if end < int(first[3]) {
		return nil, 0, fmt.Errorf("range %q ends before it starts", target)
	}
	return first, end, nil
}

func expandRange(target string) ([]net.IP, error) {
	first, end, err := parseRange(target)
	if err != nil {
		return nil, err
	}
	hosts := make([]net.IP, 0, end-int(first[3])+1)
	for octet := int(first[3]); octet <= end; octet++ {
		hosts = append(hosts, net.IPv4(first[0], first[1], first[2], byte(octet)).To4())
	}
	return hosts, nil
}

func ipv4ToUint(ip net.IP) uint32 {
	ip = ip.To4()
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

func uintToIPv4(v uint32) net.IP {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v)).To4()
}

// InterfaceResolver derives scan targets from the host's own interfaces.
type InterfaceResolver struct {
	interfaces func() ([]net.Interface, error)
	addrs      func(net.Interface) ([]net.Addr, error)
}

// NewInterfaceResolver returns a resolver backed by the operating system.
func NewInterfaceResolver() *InterfaceResolver {
	return &InterfaceResolver{
		interfaces: net.Interfaces,
		addrs:      func(iface net.Interface) ([]net.Addr, error) { return iface.Addrs() },
	}
}

// LocalSubnets returns the IPv4 networks of every interface that is up,
// skipping loopback and link-local addresses. The result is sorted and unique.
func (r *InterfaceResolver) LocalSubnets(ctx context.Context) ([]string, error) {
	ifaces, err := r.interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	seen := make(map[string]struct{})
	for _, iface := range ifaces {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := r.addrs(iface)
		if err != nil {
			continue
		}
		for _, subnet := range subnetsFromAddrs(addrs) {
			seen[subnet] = struct{}{}
		}
	}

	subnets := make([]string, 0, len(seen))
	for subnet := range seen {
		subnets = append(subnets, subnet)
	}
	sort.Strings(subnets)
	return subnets, nil
}

func subnetsFromAddrs(addrs []net.Addr) []string {
	var subnets []string
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP.To4()
		if ip == nil || ip.IsLoopback() || linkLocal.Contains(ip) {
			continue
		}
		ones, bits := ipnet.Mask.Size()
		if bits != 32 {
			continue
		}
		network := &net.IPNet{IP: ip.Mask(ipnet.Mask), Mask: ipnet.Mask}
		subnets = append(subnets, fmt.Sprintf("%s/%d", network.IP, ones))
	}
	return subnets
}

// interfaceForSubnet finds the up, non-loopback interface holding an address
// inside subnet, along with that address.
func interfaceForSubnet(subnet string) (*net.Interface, net.IP, error) {
	_, target, err := net.ParseCIDR(subnet)
	if err != nil {
		ip := net.ParseIP(strings.SplitN(subnet, "-", 2)[0]).To4()
		if ip == nil {
			return nil, nil, err
		}
		target = &net.IPNet{IP: ip.Mask(net.CIDRMask(24, 32)), Mask: net.CIDRMask(24, 32)}
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, nil, err
	}
	for i := range ifaces {
		iface := &ifaces[i]
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil {
				continue
			}
			if ipnet.Contains(target.IP) || target.Contains(ipnet.IP) {
				return iface, ipnet.IP.To4(), nil
			}
		}
	}
	return nil, nil, nil
}
