package registrar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfroyo/sitefroyo/pkg/engine"
)

type staticSecrets struct {
	value string
	err   error
	id    string
}

func (s *staticSecrets) GetSecret(_ context.Context, id string) (string, error) {
	s.id = id
	return s.value, s.err
}

type staticSource struct {
	ns  []string
	err error
}

func (s staticSource) Nameservers(context.Context, string) ([]string, error) {
	return s.ns, s.err
}

func dynadotServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("command") != "get_ns" || q.Get("key") != "k3y" || q.Get("domain") != "example.com" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDynadot_Nameservers(t *testing.T) {
	server := dynadotServer(t, `{"GetNsResponse":{"ResponseCode":0,"Status":"success","NsContent":{
		"Host2":"","Host1":"NS2.EXAMPLE.","Host0":"ns1.example","Host10":"ns11.example","NsName":""}}}`)

	secrets := &staticSecrets{value: `{"apiKey":"k3y"}`}
	d := NewDynadot(secrets, WithDynadotURL(server.URL))

	ns, err := d.Nameservers(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"ns1.example", "ns2.example", "ns11.example"}, ns)
	assert.Equal(t, DynadotSecretID, secrets.id)
}

func TestDynadot_BareKey(t *testing.T) {
	server := dynadotServer(t, `{"GetNsResponse":{"ResponseCode":"0","Status":"success","NsContent":{"Host0":"ns1.example"}}}`)

	ns, err := NewDynadot(&staticSecrets{value: " k3y\n"}, WithDynadotURL(server.URL)).
		Nameservers(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"ns1.example"}, ns)
}

func TestDynadot_Errors(t *testing.T) {
	apiError := dynadotServer(t, `{"GetNsResponse":{"ResponseCode":"-1","Status":"error","Error":"invalid key"}}`)

	tests := []struct {
		name    string
		secrets SecretReader
		url     string
		noCreds bool
	}{
		{"no secret reader", nil, apiError.URL, true},
		{"secret missing", &staticSecrets{err: errors.New("not found")}, apiError.URL, true},
		{"empty secret", &staticSecrets{value: `{"apiKey":""}`}, apiError.URL, true},
		{"malformed secret", &staticSecrets{value: `{apiKey`}, apiError.URL, true},
		{"api error", &staticSecrets{value: "k3y"}, apiError.URL, false},
		{"http error", &staticSecrets{value: "wrong"}, apiError.URL, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDynadot(tt.secrets, WithDynadotURL(tt.url)).Nameservers(context.Background(), "example.com")
			require.Error(t, err)
			assert.Equal(t, tt.noCreds, errors.Is(err, ErrNoCredentials))
		})
	}
}

func TestClient_Dispatch(t *testing.T) {
	client := NewClient(map[string]NameserverSource{
		engine.RegistrarRoute53: staticSource{ns: []string{"ns-1.awsdns-01.org"}},
		engine.RegistrarDynadot: staticSource{err: ErrNoCredentials},
		"broken":                staticSource{err: errors.New("boom")},
		"nil-list":              staticSource{},
		"unset":                 nil,
	}, zerolog.Nop())

	tests := []struct {
		registrar string
		want      []string
	}{
		{engine.RegistrarRoute53, []string{"ns-1.awsdns-01.org"}},
		{engine.RegistrarDynadot, []string{}},
		{"broken", []string{}},
		{"nil-list", []string{}},
		{"unset", []string{}},
		{"gandi", []string{}},
		{"", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.registrar, func(t *testing.T) {
			got := client.GetRegistrarNameservers(context.Background(), engine.SiteSpec{
				Domain:    "example.com",
				Registrar: tt.registrar,
			})
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}
