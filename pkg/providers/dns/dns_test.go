package dns

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	mdns "github.com/miekg/dns"
	"github.com/rs/zerolog"
)

// startServer runs handler as a DNS server on a loopback UDP port and
// returns its address.
func startServer(t *testing.T, handler mdns.HandlerFunc) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	started := make(chan struct{})
	srv := &mdns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func header(name string, rrtype uint16) mdns.RR_Header {
	return mdns.RR_Header{Name: name, Rrtype: rrtype, Class: mdns.ClassINET, Ttl: 300}
}

// zoneHandler answers NS and TXT questions for example.com and counts the
// queries it receives.
func zoneHandler(queries *atomic.Int32) mdns.HandlerFunc {
	return func(w mdns.ResponseWriter, req *mdns.Msg) {
		queries.Add(1)
		m := new(mdns.Msg)
		m.SetReply(req)

		q := req.Question[0]
		switch {
		case q.Qtype == mdns.TypeNS && q.Name == "example.com.":
			m.Answer = []mdns.RR{
				&mdns.NS{Hdr: header(q.Name, mdns.TypeNS), Ns: "NS-1.AWSDNS-01.ORG."},
				&mdns.NS{Hdr: header(q.Name, mdns.TypeNS), Ns: "ns-2.awsdns-02.com."},
			}
		case q.Qtype == mdns.TypeTXT && q.Name == "_sitefroyo.example.com.":
			m.Answer = []mdns.RR{
				&mdns.TXT{Hdr: header(q.Name, mdns.TypeTXT), Txt: []string{"  "}},
				&mdns.TXT{Hdr: header(q.Name, mdns.TypeTXT), Txt: []string{"Z0123", "456789ABC"}},
				&mdns.TXT{Hdr: header(q.Name, mdns.TypeTXT), Txt: []string{"other"}},
			}
		case q.Name == "example.com." || q.Name == "_sitefroyo.example.com.":
			// Name exists, no records of this type.
		default:
			m.Rcode = mdns.RcodeNameError
		}
		_ = w.WriteMsg(m)
	}
}

func failingHandler(queries *atomic.Int32) mdns.HandlerFunc {
	return func(w mdns.ResponseWriter, req *mdns.Msg) {
		queries.Add(1)
		m := new(mdns.Msg)
		m.SetRcode(req, mdns.RcodeServerFailure)
		_ = w.WriteMsg(m)
	}
}

func TestResolveNameservers(t *testing.T) {
	var queries atomic.Int32
	addr := startServer(t, zoneHandler(&queries))
	r := NewResolver(zerolog.Nop(), WithServers(addr))

	got := r.ResolveNameservers(context.Background(), "Example.com.")
	if len(got) != 2 {
		t.Fatalf("Expected 2 nameservers, got %v", got)
	}
	if got[0] != "ns-1.awsdns-01.org" || got[1] != "ns-2.awsdns-02.com" {
		t.Errorf("Unexpected nameservers: %v", got)
	}
}

func TestResolveNameservers_Failover(t *testing.T) {
	var failed, answered atomic.Int32
	bad := startServer(t, failingHandler(&failed))
	good := startServer(t, zoneHandler(&answered))

	r := NewResolver(zerolog.Nop(), WithServers(bad, good))
	got := r.ResolveNameservers(context.Background(), "example.com")
	if len(got) != 2 {
		t.Fatalf("Expected answer from second server, got %v", got)
	}
	if failed.Load() != 1 || answered.Load() != 1 {
		t.Errorf("Expected one query per server, got %d and %d", failed.Load(), answered.Load())
	}
}

func TestResolveNameservers_Failure(t *testing.T) {
	var queries atomic.Int32
	bad := startServer(t, failingHandler(&queries))

	r := NewResolver(zerolog.Nop(), WithServers(bad, bad))
	got := r.ResolveNameservers(context.Background(), "example.com")
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil list, got %#v", got)
	}
	if queries.Load() != 2 {
		t.Errorf("Expected every server to be tried, got %d queries", queries.Load())
	}
}

func TestResolveNameservers_NXDomainStops(t *testing.T) {
	var first, second atomic.Int32
	a := startServer(t, zoneHandler(&first))
	b := startServer(t, zoneHandler(&second))

	r := NewResolver(zerolog.Nop(), WithServers(a, b))
	got := r.ResolveNameservers(context.Background(), "missing.example.org")
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil list, got %#v", got)
	}
	if second.Load() != 0 {
		t.Errorf("Expected no failover after NXDOMAIN, second server got %d queries", second.Load())
	}
}

func TestResolveNameservers_NoRecords(t *testing.T) {
	var queries atomic.Int32
	addr := startServer(t, func(w mdns.ResponseWriter, req *mdns.Msg) {
		queries.Add(1)
		m := new(mdns.Msg)
		m.SetReply(req)
		_ = w.WriteMsg(m)
	})

	got := NewResolver(zerolog.Nop(), WithServers(addr)).ResolveNameservers(context.Background(), "example.com")
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil list, got %#v", got)
	}
}

func TestResolveOwnershipTxtRecord(t *testing.T) {
	var queries atomic.Int32
	addr := startServer(t, zoneHandler(&queries))

	r := NewResolver(zerolog.Nop(), WithServers(addr))
	if got := r.ResolveOwnershipTxtRecord(context.Background(), "EXAMPLE.com."); got != "Z0123456789ABC" {
		t.Errorf("Expected first non-empty joined record, got %q", got)
	}

	r = NewResolver(zerolog.Nop(), WithServers(addr), WithOwnershipLabel("_verify"))
	if got := r.ResolveOwnershipTxtRecord(context.Background(), "example.com"); got != "" {
		t.Errorf("Expected no record at other label, got %q", got)
	}

	var failed atomic.Int32
	bad := startServer(t, failingHandler(&failed))
	r = NewResolver(zerolog.Nop(), WithServers(bad))
	if got := r.ResolveOwnershipTxtRecord(context.Background(), "example.com"); got != "" {
		t.Errorf("Expected empty record on failure, got %q", got)
	}
}

func TestNewResolver_Servers(t *testing.T) {
	r := NewResolver(zerolog.Nop())
	if len(r.Servers()) != len(DefaultServers) {
		t.Errorf("Expected default servers, got %v", r.Servers())
	}

	r = NewResolver(zerolog.Nop(), WithServers("1.1.1.1", "8.8.8.8:5353", "2606:4700:4700::1111"), WithQueryTimeout(time.Second))
	want := []string{"1.1.1.1:53", "8.8.8.8:5353", "[2606:4700:4700::1111]:53"}
	got := r.Servers()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Server %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	r = NewResolver(zerolog.Nop(), WithServers())
	if len(r.Servers()) != len(DefaultServers) {
		t.Errorf("Expected empty option to keep defaults, got %v", r.Servers())
	}
}

func TestResolver_CancelledContext(t *testing.T) {
	var queries atomic.Int32
	addr := startServer(t, zoneHandler(&queries))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := NewResolver(zerolog.Nop(), WithServers(addr)).ResolveNameservers(ctx, "example.com")
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil list, got %#v", got)
	}
	if queries.Load() != 0 {
		t.Errorf("Expected no queries with a cancelled context, got %d", queries.Load())
	}
}

func TestOwnershipRecordName(t *testing.T) {
	tests := []struct {
		label, domain, want string
	}{
		{"_sitefroyo", "example.com", "_sitefroyo.example.com"},
		{"_sitefroyo", "Example.COM.", "_sitefroyo.example.com"},
		{"", "example.com.", "example.com"},
	}
	for _, tt := range tests {
		if got := OwnershipRecordName(tt.label, tt.domain); got != tt.want {
			t.Errorf("OwnershipRecordName(%q, %q) = %q, want %q", tt.label, tt.domain, got, tt.want)
		}
	}
}

func TestProbeConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/moved":
			http.Redirect(w, r, "/", http.StatusMovedPermanently)
		case "/missing":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	p := NewProber(time.Second, zerolog.Nop())

	tests := []struct {
		path    string
		code    int
		message string
	}{
		{"/", 200, "OK"},
		{"/missing", 404, "Not Found"},
		{"/moved", 301, "Moved Permanently"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := p.ProbeConnection(context.Background(), "example.com", server.URL+tt.path)
			if got.StatusCode != tt.code || got.StatusMessage != tt.message {
				t.Errorf("Expected %d %s, got %+v", tt.code, tt.message, got)
			}
			if got.Timing < 0 {
				t.Errorf("Expected non-negative timing, got %v", got.Timing)
			}
		})
	}
}

func TestProbeConnection_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	got := NewProber(50*time.Millisecond, zerolog.Nop()).
		ProbeConnection(context.Background(), "example.com", server.URL)

	if got.StatusCode != -1 || got.Timing != -1 {
		t.Errorf("Expected failed probe, got %+v", got)
	}
	if got.StatusMessage != "ETIMEDOUT" {
		t.Errorf("Expected ETIMEDOUT, got %s", got.StatusMessage)
	}
}

func TestProbeConnection_Refused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	got := NewProber(time.Second, zerolog.Nop()).ProbeConnection(context.Background(), "example.com", url)
	if got.StatusCode != -1 || got.StatusMessage != "ECONNREFUSED" {
		t.Errorf("Expected refused connection, got %+v", got)
	}
}

func TestProbeConnection_BadURL(t *testing.T) {
	got := NewProber(0, zerolog.Nop()).ProbeConnection(context.Background(), "example.com", "://bad")
	if got.StatusCode != -1 || got.StatusMessage != "UNKNOWN" {
		t.Errorf("Expected UNKNOWN failure, got %+v", got)
	}
}
