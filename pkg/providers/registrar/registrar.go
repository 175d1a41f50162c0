package registrar

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/openfroyo/sitefroyo/pkg/engine"
)

// NameserverSource returns the nameservers a registrar has on record.
type NameserverSource interface {
	Nameservers(ctx context.Context, domain string) ([]string, error)
}

// Client dispatches nameserver lookups to the registrar named in the
// manifest. It implements engine.RegistrarClient.
type Client struct {
	sources map[string]NameserverSource
	logger  zerolog.Logger
}

// NewClient creates a registrar client. sources maps registrar
// identifiers such as engine.RegistrarRoute53 to their lookups; nil
// entries are ignored.
func NewClient(sources map[string]NameserverSource, logger zerolog.Logger) *Client {
	c := &Client{
		sources: make(map[string]NameserverSource, len(sources)),
		logger:  logger.With().Str("component", "registrar").Logger(),
	}
	for name, src := range sources {
		if src != nil {
			c.sources[name] = src
		}
	}
	return c
}

// GetRegistrarNameservers returns the registrar's nameservers for the
// site. Unknown registrars, missing credentials and API failures all
// yield an empty list.
func (c *Client) GetRegistrarNameservers(ctx context.Context, site engine.SiteSpec) []string {
	if site.Registrar == "" {
		return []string{}
	}

	src, ok := c.sources[site.Registrar]
	if !ok {
		c.logger.Debug().Str("registrar", site.Registrar).Msg("No lookup for registrar")
		return []string{}
	}

	ns, err := src.Nameservers(ctx, site.Domain)
	if err != nil {
		event := c.logger.Warn()
		if errors.Is(err, ErrNoCredentials) {
			event = c.logger.Debug()
		}
		event.Err(err).
			Str("registrar", site.Registrar).
			Str("domain", site.Domain).
			Msg("Registrar nameserver lookup failed")
		return []string{}
	}

	if ns == nil {
		return []string{}
	}
	return ns
}
