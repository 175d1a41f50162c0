package registrar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultDynadotURL is the Dynadot API3 JSON endpoint.
	DefaultDynadotURL = "https://api.dynadot.com/api3.json"

	// DynadotSecretID names the Secrets Manager secret holding the API key.
	DynadotSecretID = "sitefroyo/registrar/dynadot"
)

// ErrNoCredentials is returned when the registrar API key is unavailable.
var ErrNoCredentials = errors.New("registrar credentials unavailable")

// SecretReader returns the string value of a named secret.
type SecretReader interface {
	GetSecret(ctx context.Context, id string) (string, error)
}

// Dynadot reads nameservers through the Dynadot API3 get_ns command.
type Dynadot struct {
	secrets  SecretReader
	secretID string
	baseURL  string
	client   *http.Client
}

// DynadotOption configures a Dynadot client.
type DynadotOption func(*Dynadot)

// WithDynadotURL overrides the API endpoint.
func WithDynadotURL(u string) DynadotOption {
	return func(d *Dynadot) { d.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) DynadotOption {
	return func(d *Dynadot) { d.client = c }
}

// NewDynadot creates a Dynadot client that loads its API key from secrets.
func NewDynadot(secrets SecretReader, opts ...DynadotOption) *Dynadot {
	d := &Dynadot{
		secrets:  secrets,
		secretID: DynadotSecretID,
		baseURL:  DefaultDynadotURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type getNsResponse struct {
	GetNsResponse struct {
		ResponseCode interface{}       `json:"ResponseCode"`
		Status       string            `json:"Status"`
		Error        string            `json:"Error"`
		NsContent    map[string]string `json:"NsContent"`
	} `json:"GetNsResponse"`
}

// Nameservers returns the nameservers Dynadot has on record for domain.
func (d *Dynadot) Nameservers(ctx context.Context, domain string) ([]string, error) {
	key, err := d.apiKey(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("key", key)
	query.Set("command", "get_ns")
	query.Set("domain", domain)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build dynadot request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dynadot get_ns failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dynadot get_ns returned HTTP %d", resp.StatusCode)
	}

	var body getNsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode dynadot response: %w", err)
	}

	r := body.GetNsResponse
	if fmt.Sprint(r.ResponseCode) != "0" || !strings.EqualFold(r.Status, "success") {
		return nil, fmt.Errorf("dynadot get_ns error: %s", r.Error)
	}

	return hostsInOrder(r.NsContent), nil
}

// apiKey reads the key from its secret, which holds either the bare key or
// a JSON object with an "apiKey" field.
func (d *Dynadot) apiKey(ctx context.Context) (string, error) {
	if d.secrets == nil {
		return "", ErrNoCredentials
	}

	raw, err := d.secrets.GetSecret(ctx, d.secretID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCredentials, err)
	}
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "{") {
		var obj struct {
			APIKey string `json:"apiKey"`
		}
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			return "", fmt.Errorf("%w: malformed secret: %v", ErrNoCredentials, err)
		}
		raw = obj.APIKey
	}

	if raw == "" {
		return "", ErrNoCredentials
	}
	return raw, nil
}

// hostsInOrder returns the non-empty Host<N> entries ordered by N.
func hostsInOrder(content map[string]string) []string {
	type host struct {
		index int
		name  string
	}

	var hosts []host
	for k, v := range content {
		if !strings.HasPrefix(k, "Host") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(k, "Host"))
		if err != nil {
			continue
		}
		if v = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(v)), "."); v != "" {
			hosts = append(hosts, host{index: n, name: v})
		}
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].index < hosts[j].index })

	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, h.name)
	}
	return out
}
