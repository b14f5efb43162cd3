package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
	"net"
	"time"

	"github.com/google/uuid"
)

// IPAddr wraps net.IP to implement PostgreSQL INET type.
type IPAddr struct {
	net.IP
}

// ParseIPAddr parses s, returning an empty IPAddr if it is not an address.
func ParseIPAddr(s string) IPAddr {
	return IPAddr{IP: net.ParseIP(s)}
}

// Scan implements sql.Scanner for PostgreSQL INET type.
func (ip *IPAddr) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into IPAddr", value)
	}

	// INET columns may come back with a host mask.
	if parsed, _, err := net.ParseCIDR(s); err == nil {
		ip.IP = parsed
		return nil
	}
	parsed := net.ParseIP(s)
	if parsed == nil {
		return fmt.Errorf("failed to parse IP address: %s", s)
	}
	ip.IP = parsed
	return nil
}

// Value implements driver.Valuer for PostgreSQL INET type.
func (ip IPAddr) Value() (driver.Value, error) {
	if ip.IP == nil {
		return nil, nil
	}
	return ip.IP.String(), nil
}

// String returns the IP address string.
func (ip IPAddr) String() string {
	if ip.IP == nil {
		return ""
	}
	return ip.IP.String()
}

// MarshalJSON writes the address as a string.
func (ip IPAddr) MarshalJSON() ([]byte, error) {
	return json.Marshal(ip.String())
}

// MACAddr wraps net.HardwareAddr to implement PostgreSQL MACADDR type.
type MACAddr struct {
	net.HardwareAddr
}

// Scan implements sql.Scanner for PostgreSQL MACADDR type.
func (mac *MACAddr) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into MACAddr", value)
	}
	hw, err := net.ParseMAC(s)
	if err != nil {
		return fmt.Errorf("failed to parse MAC address: %w", err)
	}
	mac.HardwareAddr = hw
	return nil
}

// Value implements driver.Valuer for PostgreSQL MACADDR type.
func (mac MACAddr) Value() (driver.Value, error) {
	if mac.HardwareAddr == nil {
		return nil, nil
	}
	return mac.HardwareAddr.String(), nil
}

// String returns the MAC address string.
func (mac MACAddr) String() string {
	if mac.HardwareAddr == nil {
		return ""
	}
	return mac.HardwareAddr.String()
}

// MarshalJSON writes the address as a string, or null when unset.
func (mac MACAddr) MarshalJSON() ([]byte, error) {
	if mac.HardwareAddr == nil {
		return []byte("null"), nil
	}
	return json.Marshal(mac.String())
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (mac *MACAddr) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		mac.HardwareAddr = nil
		return nil
	}
	return mac.Scan(*s)
}

// JSONB is a PostgreSQL JSONB object column.
type JSONB map[string]any

// Scan implements sql.Scanner for PostgreSQL JSONB type.
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONB", value)
	}

	m := make(map[string]any)
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("failed to decode JSONB: %w", err)
	}
	*j = m
	return nil
}

// Value implements driver.Valuer for PostgreSQL JSONB type.
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(j))
}

// Merge returns a copy of j with the keys of other laid over it.
func (j JSONB) Merge(other map[string]any) JSONB {
	out := make(JSONB, len(j)+len(other))
	maps.Copy(out, j)
	maps.Copy(out, other)
	return out
}

// ScanRecord is one row of network_scans: the persisted view of a scan job.
type ScanRecord struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Status          string     `db:"status" json:"status"`
	ScanMethod      string     `db:"scan_method" json:"scan_method"`
	IPRange         string     `db:"ip_range" json:"ip_range"`
	DevicesFound    int        `db:"devices_found" json:"devices_found"`
	DurationSeconds *float64   `db:"duration_seconds" json:"duration_seconds,omitempty"`
	ErrorMessage    *string    `db:"error_message" json:"error_message,omitempty"`
	Metadata        JSONB      `db:"metadata" json:"metadata"`
	StartedAt       time.Time  `db:"started_at" json:"started_at"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// DeviceRecord is one row of network_devices.
type DeviceRecord struct {
	ID              uuid.UUID `db:"id" json:"id"`
	IPAddress       IPAddr    `db:"ip_address" json:"ip_address"`
	MACAddress      *MACAddr  `db:"mac_address" json:"mac_address,omitempty"`
	Hostname        *string   `db:"hostname" json:"hostname,omitempty"`
	Label           string    `db:"label" json:"label"`
	DeviceType      string    `db:"device_type" json:"device_type"`
	Status          string    `db:"status" json:"status"`
	IsManuallyAdded bool      `db:"is_manually_added" json:"is_manually_added"`
	Metadata        JSONB     `db:"metadata" json:"metadata"`
	FirstSeen       time.Time `db:"first_seen" json:"first_seen"`
	LastSeen        time.Time `db:"last_seen" json:"last_seen"`
}

// ConnectionRecord is one row of network_connections.
type ConnectionRecord struct {
	ID             uuid.UUID `db:"id" json:"id"`
	SourceID       uuid.UUID `db:"source_id" json:"source_id"`
	TargetID       uuid.UUID `db:"target_id" json:"target_id"`
	Status         string    `db:"status" json:"status"`
	ConnectionType string    `db:"connection_type" json:"connection_type"`
	LatencyMS      *float64  `db:"latency_ms" json:"latency_ms,omitempty"`
	Metadata       JSONB     `db:"metadata" json:"metadata"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Scan record statuses.
const (
	ScanStatusInProgress = "in-progress"
	ScanStatusCompleted  = "completed"
	ScanStatusFailed     = "failed"
)

// ScanMethodService marks records created by the scan service.
const ScanMethodService = "network_scanner_service"

// AutoDetectedRange is stored when a scan had no explicit target.
const AutoDetectedRange = "auto-detected"

// Metadata keys on scan records.
const (
	MetaJobID    = "job_id"
	MetaProgress = "progress"
)
