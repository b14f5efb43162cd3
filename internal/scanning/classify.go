package scanning

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/anstrom/netinventory/internal/discovery"
)

// osHints are checked in order; the first group with a matching substring wins.
var osHints = []struct {
	words []string
	kind  DeviceType
}{
	{[]string{"router", "gateway"}, DeviceRouter},
	{[]string{"server", "linux", "unix"}, DeviceServer},
	{[]string{"windows"}, DeviceWorkstation},
	{[]string{"apple", "mac", "ios"}, DeviceWorkstation},
	{[]string{"android"}, DeviceMobile},
}

// ClassifyOS guesses a device type from an OS fingerprint name.
func ClassifyOS(osName string) DeviceType {
	name := strings.ToLower(osName)
	if name == "" {
		return DeviceOther
	}
	for _, hint := range osHints {
		for _, w := range hint.words {
			if strings.Contains(name, w) {
				return hint.kind
			}
		}
	}
	return DeviceOther
}

// ClassifyPorts guesses a device type from its open ports: web plus SSH means server.
func ClassifyPorts(ports []discovery.PortInfo) DeviceType {
	var web, ssh bool
	for _, p := range ports {
		switch p.Port {
		case 80, 443:
			web = true
		case 22:
			ssh = true
		}
	}
	if web && ssh {
		return DeviceServer
	}
	return DeviceOther
}

// DeviceLabel is the hostname when known, else Type-<last octet>.
func DeviceLabel(d *Device) string {
	if d.Hostname != "" {
		return d.Hostname
	}
	octet := d.IP
	if i := strings.LastIndex(d.IP, "."); i >= 0 {
		octet = d.IP[i+1:]
	}
	return capitalize(string(d.Type)) + "-" + octet
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func deviceID(n int) string { return fmt.Sprintf("device-%d", n) }

func connectionID(n int) string { return fmt.Sprintf("conn-%d", n) }

// deviceSeq extracts N from device-N; unknown forms sort last.
func deviceSeq(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "device-"))
	if err != nil {
		return math.MaxInt
	}
	return n
}
