package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

// sysName.0 from SNMPv2-MIB.
const oidSysName = ".1.3.6.1.2.1.1.5.0"

// SNMPNameResolver reads a device's administratively assigned name over SNMP v2c.
type SNMPNameResolver struct {
	Community string
	Port      uint16
	Timeout   time.Duration
}

// NewSNMPNameResolver returns a resolver with the usual v2c defaults filled in.
func NewSNMPNameResolver(community string, timeout time.Duration) *SNMPNameResolver {
	if community == "" {
		community = "public"
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &SNMPNameResolver{Community: community, Port: 161, Timeout: timeout}
}

// LookupHostname returns sysName.0 of the agent at ip.
func (r *SNMPNameResolver) LookupHostname(ctx context.Context, ip string) (string, error) {
	client := &gosnmp.GoSNMP{
		Target:    ip,
		Port:      r.Port,
		Community: r.Community,
		Version:   gosnmp.Version2c,
		Timeout:   r.Timeout,
		Retries:   0,
		Context:   ctx,
	}
	if err := client.Connect(); err != nil {
		return "", fmt.Errorf("snmp connect %s: %w", ip, err)
	}
	defer func() { _ = client.Conn.Close() }()

	packet, err := client.Get([]string{oidSysName})
	if err != nil {
		return "", fmt.Errorf("snmp get %s: %w", ip, err)
	}
	return sysNameFromPDUs(packet.Variables), nil
}

func sysNameFromPDUs(vars []gosnmp.SnmpPDU) string {
	for _, v := range vars {
		if v.Type != gosnmp.OctetString {
			continue
		}
		if raw, ok := v.Value.([]byte); ok {
			return strings.TrimSpace(string(raw))
		}
	}
	return ""
}
