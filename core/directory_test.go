package core_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	core "dexarb/core"
	"github.com/mr-tron/base58"
)

func b58Of(seed byte) string {
	var p [32]byte
	p[31] = seed
	return base58.Encode(p[:])
}

func TestHTTPDirectoryProvider_OfficialShape(t *testing.T) {
	addr := b58Of(1)
	major := b58Of(2)
	other := b58Of(3)
	body := `{"official":[{"id":"` + addr + `","baseMint":"` + major + `","quoteMint":"` + other + `","liquidity":50000}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	var majorTok core.TokenId
	copy(majorTok[:], mustDecode(t, major))
	majors := map[core.TokenId]struct{}{majorTok: {}}

	p := core.NewHTTPDirectoryProvider("test", srv.URL, time.Second, majorsFrom(majors), 1000, 10)
	cands, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	if cands[0].LiquidityUSD != 50000 {
		t.Fatalf("unexpected liquidity: %v", cands[0].LiquidityUSD)
	}
}

func TestHTTPDirectoryProvider_BareArrayShape(t *testing.T) {
	addr := b58Of(4)
	major := b58Of(5)
	other := b58Of(6)
	body := `[{"address":"` + addr + `","tokenA":{"mint":"` + major + `"},"tokenB":{"mint":"` + other + `"},"liquidity":2000}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	var majorTok core.TokenId
	copy(majorTok[:], mustDecode(t, major))
	majors := map[core.TokenId]struct{}{majorTok: {}}

	p := core.NewHTTPDirectoryProvider("test", srv.URL, time.Second, majorsFrom(majors), 500, 10)
	cands, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
}

func TestHTTPDirectoryProvider_FiltersNonMajorAndLowLiquidity(t *testing.T) {
	addr := b58Of(7)
	tokA := b58Of(8)
	tokB := b58Of(9)
	body := `{"data":[{"id":"` + addr + `","baseMint":"` + tokA + `","quoteMint":"` + tokB + `","liquidity":100}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	// Neither tokA nor tokB is in the major whitelist.
	p := core.NewHTTPDirectoryProvider("test", srv.URL, time.Second, majorsFrom(nil), 1000, 10)
	cands, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("expected 0 candidates (no major mint), got %d", len(cands))
	}
}

func mustDecode(t *testing.T, s string) []byte {
	t.Helper()
	b, err := base58.Decode(s)
	if err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return b
}

// majorsFrom returns the map unchanged; it is passed where
// NewHTTPDirectoryProvider takes its major-token whitelist.
func majorsFrom(m map[core.TokenId]struct{}) map[core.TokenId]struct{} {
	return m
}
