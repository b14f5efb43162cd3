package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/time/rate"

	inverrors "github.com/anstrom/netinventory/internal/errors"
	"github.com/anstrom/netinventory/internal/logging"
)

const (
	defaultARPReadWindow = 3 * time.Second
	defaultARPRate       = 256
	arpSnapLen           = 65536
	arpPollInterval      = 100 * time.Millisecond
)

var broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ARPProbe finds hosts on directly attached subnets by broadcasting ARP requests
// and collecting the replies. It needs raw capture rights on the interface.
type ARPProbe struct {
	readWindow time.Duration
	ratePerSec float64
	logger     *logging.Logger
}

// NewARPProbe returns a probe that listens readWindow after the last request
// and sends at most ratePerSec requests per second.
func NewARPProbe(readWindow time.Duration, ratePerSec float64, logger *logging.Logger) *ARPProbe {
	if readWindow <= 0 {
		readWindow = defaultARPReadWindow
	}
	if ratePerSec <= 0 {
		ratePerSec = defaultARPRate
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ARPProbe{readWindow: readWindow, ratePerSec: ratePerSec, logger: logger.WithComponent("arp")}
}

// Name returns the discovery method name.
func (p *ARPProbe) Name() string { return MethodARP }

// Available reports whether packet capture can be used at all.
func (p *ARPProbe) Available() error {
	devs, err := pcap.FindAllDevs()
	if err != nil {
		return inverrors.ErrProbeUnavailable(MethodARP, err)
	}
	if len(devs) == 0 {
		return inverrors.ErrProbeUnavailable(MethodARP, errors.New("no capture devices visible"))
	}
	return nil
}

// Sweep sends an ARP request to every host address in subnet and returns
// the hosts that replied, in address order. A subnet with no on-link
// interface yields no responders and no error.
func (p *ARPProbe) Sweep(ctx context.Context, subnet string) ([]Responder, error) {
	hosts, err := ExpandTarget(subnet)
	if err != nil {
		return nil, inverrors.ErrDiscoveryFailed(subnet, MethodARP, err)
	}
	iface, srcIP, err := interfaceForSubnet(subnet)
	if err != nil {
		return nil, inverrors.ErrDiscoveryFailed(subnet, MethodARP, err)
	}
	if iface == nil {
		p.logger.InfoDiscovery("no on-link interface, skipping ARP sweep", subnet)
		return nil, nil
	}

	handle, err := pcap.OpenLive(iface.Name, arpSnapLen, false, arpPollInterval)
	if err != nil {
		return nil, inverrors.ErrProbeUnavailable(MethodARP, err)
	}
	defer handle.Close()
	if err := handle.SetBPFFilter("arp"); err != nil {
		return nil, inverrors.ErrDiscoveryFailed(subnet, MethodARP, err)
	}

	wanted := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		wanted[h.String()] = struct{}{}
	}

	var (
		mu      sync.Mutex
		replies = make(map[string]string)
		wg      sync.WaitGroup
	)
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			data, _, err := handle.ReadPacketData()
			if err != nil {
				if errors.Is(err, pcap.NextErrorTimeoutExpired) {
					continue
				}
				if errors.Is(err, pcap.NextErrorNoMorePackets) {
					return
				}
				continue
			}
			resp, ok := parseARPReply(data)
			if !ok {
				continue
			}
			if _, in := wanted[resp.Address]; !in {
				continue
			}
			mu.Lock()
			replies[resp.Address] = resp.LinkAddress
			mu.Unlock()
		}
	}()

	sendErr := p.sendRequests(ctx, handle, iface.HardwareAddr, srcIP, hosts)

	if sendErr == nil {
		timer := time.NewTimer(p.readWindow)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		timer.Stop()
	}
	close(stop)
	wg.Wait()

	if sendErr != nil && !errors.Is(sendErr, context.Canceled) && !errors.Is(sendErr, context.DeadlineExceeded) {
		return nil, inverrors.ErrDiscoveryFailed(subnet, MethodARP, sendErr)
	}

	responders := make([]Responder, 0, len(replies))
	for _, h := range hosts {
		if mac, ok := replies[h.String()]; ok {
			responders = append(responders, Responder{Address: h.String(), LinkAddress: mac})
		}
	}
	p.logger.InfoDiscovery("ARP sweep finished", subnet, "responders", len(responders))
	return responders, nil
}

func (p *ARPProbe) sendRequests(ctx context.Context, handle *pcap.Handle, srcMAC net.HardwareAddr, srcIP net.IP, hosts []net.IP) error {
	limiter := rate.NewLimiter(rate.Limit(p.ratePerSec), 1)
	for _, dst := range hosts {
		if dst.Equal(srcIP) {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		frame, err := buildARPRequest(srcMAC, srcIP, dst)
		if err != nil {
			return err
		}
		if err := handle.WritePacketData(frame); err != nil {
			return fmt.Errorf("write ARP request to %s: %w", dst, err)
		}
	}
	return nil
}

// buildARPRequest serializes a broadcast who-has frame for dst.
func buildARPRequest(srcMAC net.HardwareAddr, srcIP, dst net.IP) ([]byte, error) {
	src4, dst4 := srcIP.To4(), dst.To4()
	if src4 == nil || dst4 == nil {
		return nil, fmt.Errorf("ARP needs IPv4 addresses, got %s -> %s", srcIP, dst)
	}

	eth := layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       broadcastMAC,
		EthernetType: layers.EthernetTypeARP,
	}
	arp := layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   []byte(srcMAC),
		SourceProtAddress: []byte(src4),
		DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
		DstProtAddress:    []byte(dst4),
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, &eth, &arp); err != nil {
		return nil, fmt.Errorf("failed to serialize ARP request: %w", err)
	}
	return buf.Bytes(), nil
}

// parseARPReply extracts the sender of an ARP reply frame.
func parseARPReply(data []byte) (Responder, bool) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)
	arpLayer := packet.Layer(layers.LayerTypeARP)
	if arpLayer == nil {
		return Responder{}, false
	}
	arp, ok := arpLayer.(*layers.ARP)
	if !ok || arp.Operation != layers.ARPReply {
		return Responder{}, false
	}
	return Responder{
		Address:     net.IP(arp.SourceProtAddress).String(),
		LinkAddress: net.HardwareAddr(arp.SourceHwAddress).String(),
	}, true
}
