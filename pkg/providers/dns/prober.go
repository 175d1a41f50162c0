package dns

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/openfroyo/sitefroyo/pkg/engine"
)

// DefaultProbeTimeout bounds the live connectivity probe.
const DefaultProbeTimeout = time.Second

// Prober performs the live HTTP probe. It implements
// engine.ConnectionProber.
type Prober struct {
	client *http.Client
	logger zerolog.Logger
}

// NewProber creates a prober with the given timeout. Redirects are not
// followed, so a redirecting site reports its 3xx status.
func NewProber(timeout time.Duration, logger zerolog.Logger) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger.With().Str("component", "http-prober").Logger(),
	}
}

// ProbeConnection issues a GET to url. Any failure is reported as a
// synthetic result with status code -1.
func (p *Prober) ProbeConnection(ctx context.Context, domain, url string) *engine.ConnectionStatus {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		p.logger.Debug().Err(err).Str("url", url).Msg("Invalid probe URL")
		return engine.FailedConnection("")
	}
	req.Header.Set("User-Agent", "sitefroyo-probe")

	resp, err := p.client.Do(req)
	if err != nil {
		reason := failureReason(err)
		p.logger.Debug().Err(err).
			Str("domain", domain).
			Str("reason", reason).
			Msg("Connection probe failed")
		return engine.FailedConnection(reason)
	}
	defer resp.Body.Close()

	return &engine.ConnectionStatus{
		StatusCode:    resp.StatusCode,
		StatusMessage: http.StatusText(resp.StatusCode),
		Timing:        time.Since(start),
	}
}

// failureReason maps a transport error to a short error code.
func failureReason(err error) string {
	var (
		dnsErr  *net.DNSError
		netErr  net.Error
		certErr *x509.UnknownAuthorityError
		hostErr x509.HostnameError
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "ETIMEDOUT"
	case errors.As(err, &dnsErr):
		return "ENOTFOUND"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "ECONNREFUSED"
	case errors.Is(err, syscall.ECONNRESET):
		return "ECONNRESET"
	case errors.As(err, &certErr), errors.As(err, &hostErr):
		return "CERT_INVALID"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "ETIMEDOUT"
	default:
		return ""
	}
}
