package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	defaultResolvConf = "/etc/resolv.conf"
	defaultDNSTimeout = 2 * time.Second
)

// DNSResolver performs reverse (PTR) lookups.
// Queries go straight to the configured name servers; without any it uses the system resolver.
type DNSResolver struct {
	servers  []string
	timeout  time.Duration
	client   *dns.Client
	fallback *net.Resolver
}

// NewDNSResolver builds a resolver for servers ("host" or "host:port").
// With no servers it reads /etc/resolv.conf, falling back to the system resolver.
func NewDNSResolver(servers []string, timeout time.Duration) *DNSResolver {
	if timeout <= 0 {
		timeout = defaultDNSTimeout
	}
	if len(servers) == 0 {
		if conf, err := dns.ClientConfigFromFile(defaultResolvConf); err == nil {
			for _, s := range conf.Servers {
				servers = append(servers, net.JoinHostPort(s, conf.Port))
			}
		}
	}

	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		normalized = append(normalized, s)
	}

	return &DNSResolver{
		servers:  normalized,
		timeout:  timeout,
		client:   &dns.Client{Net: "udp", Timeout: timeout},
		fallback: net.DefaultResolver,
	}
}

// LookupHostname returns the first PTR name for ip, without the trailing dot.
// An address with no PTR record yields "" and no error.
func (r *DNSResolver) LookupHostname(ctx context.Context, ip string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if len(r.servers) == 0 {
		names, err := r.fallback.LookupAddr(ctx, ip)
		if err != nil {
			var dnsErr *net.DNSError
			if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
				return "", nil
			}
			return "", err
		}
		if len(names) == 0 {
			return "", nil
		}
		return strings.TrimSuffix(names[0], "."), nil
	}

	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", ip, err)
	}
	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		in, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		if in.Rcode == dns.RcodeNameError {
			return "", nil
		}
		return firstPTR(in), nil
	}
	return "", lastErr
}

func firstPTR(msg *dns.Msg) string {
	for _, rr := range msg.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, ".")
		}
	}
	return ""
}

// NameResolver maps an address to a host name.
type NameResolver interface {
	LookupHostname(ctx context.Context, ip string) (string, error)
}

// ChainResolver asks each resolver in turn and returns the first non-empty name.
type ChainResolver struct {
	resolvers []NameResolver
}

// NewChainResolver chains resolvers in priority order. Nil entries are skipped.
func NewChainResolver(resolvers ...NameResolver) *ChainResolver {
	chain := &ChainResolver{}
	for _, r := range resolvers {
		if r != nil {
			chain.resolvers = append(chain.resolvers, r)
		}
	}
	return chain
}

// LookupHostname implements the hostname resolver contract.
func (c *ChainResolver) LookupHostname(ctx context.Context, ip string) (string, error) {
	var errs []error
	for _, r := range c.resolvers {
		name, err := r.LookupHostname(ctx, ip)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if name != "" {
			return name, nil
		}
	}
	return "", errors.Join(errs...)
}
