package scanning

import (
	"maps"
	"slices"
	"sort"
)

// DeviceType is the coarse classification of a device.
type DeviceType string

const (
	DeviceServer      DeviceType = "server"
	DeviceWorkstation DeviceType = "workstation"
	DeviceRouter      DeviceType = "router"
	DeviceSwitch      DeviceType = "switch"
	DeviceFirewall    DeviceType = "firewall"
	DeviceMobile      DeviceType = "mobile"
	DeviceOther       DeviceType = "other"
)

// DeviceStatus is the reachability of a device at scan time.
type DeviceStatus string

const (
	DeviceOnline  DeviceStatus = "online"
	DeviceOffline DeviceStatus = "offline"
	DeviceWarning DeviceStatus = "warning"
	DeviceError   DeviceStatus = "error"
)

// ConnectionType is the kind of link between two devices.
type ConnectionType string

const (
	ConnectionWired    ConnectionType = "wired"
	ConnectionWireless ConnectionType = "wireless"
	ConnectionVPN      ConnectionType = "vpn"
	ConnectionOther    ConnectionType = "other"
)

// ConnectionActive is the status given to inferred links.
const ConnectionActive = "active"

// Metadata keys set on devices.
const (
	MetaOS         = "os"
	MetaOSAccuracy = "os_accuracy"
	MetaPorts      = "ports"
	MetaVendor     = "vendor"
)

// Device is one discovered host.
type Device struct {
	ID       string         `json:"id"`
	IP       string         `json:"ip"`
	MAC      string         `json:"mac,omitempty"`
	Hostname string         `json:"hostname,omitempty"`
	Label    string         `json:"label"`
	Type     DeviceType     `json:"type"`
	Status   DeviceStatus   `json:"status"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (d *Device) clone() *Device {
	c := *d
	c.Metadata = maps.Clone(d.Metadata)
	return &c
}

// Connection is an inferred link from Source to Target device id.
type Connection struct {
	ID       string         `json:"id"`
	Source   string         `json:"source"`
	Target   string         `json:"target"`
	Status   string         `json:"status"`
	Type     ConnectionType `json:"type"`
	Latency  *float64       `json:"latency,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ScanResult is the outcome of a job. Devices are keyed by IP address.
type ScanResult struct {
	Devices         map[string]*Device `json:"devices"`
	Connections     []Connection       `json:"connections"`
	Error           string             `json:"error,omitempty"`
	Warning         string             `json:"warning,omitempty"`
	ScanTime        float64            `json:"scan_time"`
	DeviceCount     int                `json:"device_count"`
	ConnectionCount int                `json:"connection_count"`
}

// NewScanResult returns an empty result.
func NewScanResult() *ScanResult {
	return &ScanResult{
		Devices:     make(map[string]*Device),
		Connections: []Connection{},
	}
}

// Recount recomputes the aggregate counts from the collections.
func (r *ScanResult) Recount() {
	r.DeviceCount = len(r.Devices)
	r.ConnectionCount = len(r.Connections)
}

// Clone returns a deep copy. A nil result clones to nil.
func (r *ScanResult) Clone() *ScanResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Devices = make(map[string]*Device, len(r.Devices))
	for ip, d := range r.Devices {
		c.Devices[ip] = d.clone()
	}
	c.Connections = slices.Clone(r.Connections)
	for i := range c.Connections {
		c.Connections[i].Metadata = maps.Clone(c.Connections[i].Metadata)
	}
	return &c
}

// SortedDevices returns the devices ordered by id number (discovery order).
func (r *ScanResult) SortedDevices() []*Device {
	out := slices.Collect(maps.Values(r.Devices))
	sort.Slice(out, func(i, j int) bool {
		return deviceSeq(out[i].ID) < deviceSeq(out[j].ID)
	})
	return out
}
