package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/openfroyo/sitefroyo/pkg/config"
	"github.com/openfroyo/sitefroyo/pkg/engine"
	awsprovider "github.com/openfroyo/sitefroyo/pkg/providers/aws"
	"github.com/openfroyo/sitefroyo/pkg/providers/dns"
	"github.com/openfroyo/sitefroyo/pkg/providers/registrar"
	"github.com/openfroyo/sitefroyo/pkg/stores"
)

// Options adjusts how a Backend is assembled.
type Options struct {
	// Offline skips every network collaborator. Only the local store is
	// consulted, so most facts evaluate false.
	Offline bool
}

// Backend owns the collaborators of one CLI run and the local store that
// records status history.
type Backend struct {
	Collaborators engine.Collaborators
	Store         *stores.SQLiteStore
}

// Open assembles the collaborators selected by settings. The local store is
// always opened and migrated; with the local backend it also serves
// parameters.
func Open(ctx context.Context, settings *config.Settings, opts Options, logger zerolog.Logger) (*Backend, error) {
	store, err := openStore(ctx, settings)
	if err != nil {
		return nil, err
	}

	b := &Backend{Store: store}

	switch {
	case settings.Backend == config.BackendLocal:
		b.Collaborators.Parameters = store
		if !opts.Offline {
			addPublicNetwork(&b.Collaborators, settings, logger)
		}

	case opts.Offline:
		// Nothing reachable; every list stays absent.

	default:
		cfg, err := awsprovider.LoadConfig(ctx, settings.AWS.Region, settings.AWS.Profile)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		clients := awsprovider.NewClients(cfg, settings.ParameterPrefix)

		b.Collaborators.Parameters = clients.Parameters
		b.Collaborators.HostedZones = clients.HostedZones
		b.Collaborators.Buckets = clients.Buckets
		b.Collaborators.Registrar = registrar.NewClient(map[string]registrar.NameserverSource{
			engine.RegistrarRoute53: clients.Domains,
			engine.RegistrarDynadot: registrar.NewDynadot(clients.Secrets),
		}, logger)
		addPublicNetwork(&b.Collaborators, settings, logger)
	}

	logger.Debug().
		Str("backend", settings.Backend).
		Bool("offline", opts.Offline).
		Str("state", settings.State.Path).
		Msg("Backend opened")

	return b, nil
}

func addPublicNetwork(c *engine.Collaborators, settings *config.Settings, logger zerolog.Logger) {
	resolver := dns.NewResolver(logger,
		dns.WithServers(settings.Probe.DNSServers...),
		dns.WithQueryTimeout(settings.Probe.Timeout),
	)
	c.Nameservers = resolver
	c.Ownership = resolver
	c.Prober = dns.NewProber(settings.Probe.Timeout, logger)
}

func openStore(ctx context.Context, settings *config.Settings) (*stores.SQLiteStore, error) {
	path := settings.State.Path
	if path != stores.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store, err := stores.NewSQLiteStore(stores.Config{
		Path:            path,
		ParameterPrefix: settings.ParameterPrefix,
	})
	if err != nil {
		return nil, err
	}

	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	return store, nil
}

// Close releases the local store.
func (b *Backend) Close() error {
	if b == nil || b.Store == nil {
		return nil
	}
	return b.Store.Close()
}
