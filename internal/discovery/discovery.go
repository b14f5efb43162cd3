// Package discovery implements the low-level probes used by the scan engine:
// address-resolution and ping sweeps that find live hosts, and the enrichment
// probes (reverse lookup, deep scan, gateway and latency) that describe them.
//
// Every probe is safe for concurrent use and bounds each call with its own
// timeout in addition to the caller's context.
package discovery

import (
	"time"

	"github.com/Ullaakut/nmap/v3"
)

// Discovery method names, used in logs, metrics and partial-result keys.
const (
	MethodARP  = "arp"
	MethodPing = "ping"
)

// Responder is a host that answered a discovery sweep.
type Responder struct {
	Address     string `json:"ip"`
	LinkAddress string `json:"mac,omitempty"`
}

// PortInfo describes one open port found by a deep scan.
type PortInfo struct {
	Port     uint16 `json:"port"`
	Protocol string `json:"protocol"`
	State    string `json:"state"`
	Service  string `json:"service,omitempty"`
	Product  string `json:"product,omitempty"`
	Version  string `json:"version,omitempty"`
}

// HostReport is the per-host output of a deep scan.
type HostReport struct {
	Address     string     `json:"ip"`
	LinkAddress string     `json:"mac,omitempty"`
	Vendor      string     `json:"vendor,omitempty"`
	Hostname    string     `json:"hostname,omitempty"`
	Status      string     `json:"status"`
	OSName      string     `json:"os,omitempty"`
	OSAccuracy  int        `json:"os_accuracy,omitempty"`
	Ports       []PortInfo `json:"ports,omitempty"`
}

// Profile selects how aggressive a deep scan is.
type Profile struct {
	TopPorts         int  `json:"top_ports,omitempty"`
	AllPorts         bool `json:"all_ports,omitempty"`
	OSDetection      bool `json:"os_detection"`
	ServiceDetection bool `json:"service_detection"`
	Aggressive       bool `json:"aggressive"`
}

const (
	fastTimeoutThreshold   = 30 * time.Second
	normalTimeoutThreshold = 2 * time.Minute
)

// timingForTimeout picks an nmap timing template that fits the call budget.
func timingForTimeout(timeout time.Duration) nmap.Timing {
	switch {
	case timeout <= fastTimeoutThreshold:
		return nmap.TimingAggressive
	case timeout <= normalTimeoutThreshold:
		return nmap.TimingNormal
	default:
		return nmap.TimingPolite
	}
}

// firstAddress returns the first address of type addrType reported for an nmap host.
func firstAddress(host *nmap.Host, addrType string) (nmap.Address, bool) {
	for _, addr := range host.Addresses {
		if addr.AddrType == addrType {
			return addr, true
		}
	}
	return nmap.Address{}, false
}

// hostIPv4 returns the IPv4 address nmap reported, falling back to the first address.
func hostIPv4(host *nmap.Host) string {
	if addr, ok := firstAddress(host, "ipv4"); ok {
		return addr.Addr
	}
	for _, addr := range host.Addresses {
		if addr.AddrType != "mac" {
			return addr.Addr
		}
	}
	return ""
}
