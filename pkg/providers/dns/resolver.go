package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
	"github.com/rs/zerolog"
)

// DefaultOwnershipLabel is the label under which the ownership-proof TXT
// record is published.
const DefaultOwnershipLabel = "_sitefroyo"

// DefaultQueryTimeout bounds one query to one upstream server.
const DefaultQueryTimeout = 2 * time.Second

// DefaultServers are public recursive resolvers, tried in order. Asking
// them instead of the local stub shows what the rest of the world sees
// while a delegation propagates.
var DefaultServers = []string{"1.1.1.1:53", "8.8.8.8:53", "9.9.9.9:53"}

// errNXDomain means an upstream answered authoritatively that the name
// does not exist. No other server is asked.
var errNXDomain = errors.New("no such domain")

// exchanger is the subset of *mdns.Client used here.
type exchanger interface {
	ExchangeContext(ctx context.Context, m *mdns.Msg, address string) (*mdns.Msg, time.Duration, error)
}

// Resolver answers the engine's DNS questions from public DNS. It
// implements engine.NameserverResolver and engine.OwnershipResolver.
type Resolver struct {
	client         exchanger
	servers        []string
	ownershipLabel string
	logger         zerolog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithServers replaces the upstream servers. Entries without a port get
// port 53. An empty list keeps the defaults.
func WithServers(servers ...string) ResolverOption {
	return func(r *Resolver) {
		if len(servers) == 0 {
			return
		}
		r.servers = make([]string, 0, len(servers))
		for _, s := range servers {
			r.servers = append(r.servers, withPort(s))
		}
	}
}

// WithQueryTimeout sets the per-server query timeout.
func WithQueryTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.client = &mdns.Client{Net: "udp", Timeout: d}
		}
	}
}

// WithOwnershipLabel changes the TXT record label.
func WithOwnershipLabel(label string) ResolverOption {
	return func(r *Resolver) { r.ownershipLabel = label }
}

// NewResolver creates a resolver querying DefaultServers over UDP.
func NewResolver(logger zerolog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:         &mdns.Client{Net: "udp", Timeout: DefaultQueryTimeout},
		servers:        DefaultServers,
		ownershipLabel: DefaultOwnershipLabel,
		logger:         logger.With().Str("component", "dns-resolver").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Servers returns the upstream servers in query order.
func (r *Resolver) Servers() []string {
	return append([]string(nil), r.servers...)
}

// ResolveNameservers returns the NS records of domain, lower-cased and
// without the trailing dot. Failures yield an empty list.
func (r *Resolver) ResolveNameservers(ctx context.Context, domain string) []string {
	answers, err := r.query(ctx, Normalize(domain), mdns.TypeNS)
	if err != nil {
		r.logger.Debug().Err(err).Str("domain", domain).Msg("NS lookup failed")
		return []string{}
	}

	out := make([]string, 0, len(answers))
	for _, rr := range answers {
		ns, ok := rr.(*mdns.NS)
		if !ok {
			continue
		}
		if host := Normalize(ns.Ns); host != "" {
			out = append(out, host)
		}
	}
	return out
}

// ResolveOwnershipTxtRecord returns the first TXT record published at the
// ownership label of domain, or "" when there is none.
func (r *Resolver) ResolveOwnershipTxtRecord(ctx context.Context, domain string) string {
	name := OwnershipRecordName(r.ownershipLabel, domain)

	answers, err := r.query(ctx, name, mdns.TypeTXT)
	if err != nil {
		r.logger.Debug().Err(err).Str("record", name).Msg("TXT lookup failed")
		return ""
	}

	for _, rr := range answers {
		txt, ok := rr.(*mdns.TXT)
		if !ok {
			continue
		}
		// Long records arrive split into 255-byte strings.
		if value := strings.TrimSpace(strings.Join(txt.Txt, "")); value != "" {
			return value
		}
	}
	return ""
}

// query asks each upstream in turn until one answers.
func (r *Resolver) query(ctx context.Context, name string, qtype uint16) ([]mdns.RR, error) {
	if len(r.servers) == 0 {
		return nil, fmt.Errorf("no DNS servers configured")
	}

	msg := new(mdns.Msg)
	msg.SetQuestion(mdns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		answers, err := r.queryServer(ctx, msg, server)
		if err == nil {
			return answers, nil
		}
		if errors.Is(err, errNXDomain) {
			return nil, err
		}
		r.logger.Debug().Err(err).Str("server", server).Str("name", name).Msg("DNS server failed, trying next")
		lastErr = err
	}

	return nil, fmt.Errorf("all DNS servers failed, last error: %w", lastErr)
}

func (r *Resolver) queryServer(ctx context.Context, msg *mdns.Msg, server string) ([]mdns.RR, error) {
	resp, _, err := r.client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, fmt.Errorf("DNS query to %s failed: %w", server, err)
	}

	switch resp.Rcode {
	case mdns.RcodeSuccess:
		return resp.Answer, nil
	case mdns.RcodeNameError:
		return nil, fmt.Errorf("%s: %w", msg.Question[0].Name, errNXDomain)
	default:
		return nil, fmt.Errorf("DNS query to %s returned %s", server, mdns.RcodeToString[resp.Rcode])
	}
}

// OwnershipRecordName returns the fully qualified ownership record name.
func OwnershipRecordName(label, domain string) string {
	if label == "" {
		return Normalize(domain)
	}
	return label + "." + Normalize(domain)
}

// Normalize lower-cases a DNS name and strips the trailing dot.
func Normalize(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
}

func withPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), "53")
}
