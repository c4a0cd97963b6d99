package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/mr-tron/base58"
	"golang.org/x/time/rate"
)

// defaultDirectoryRateLimit caps how often a single HTTPDirectoryProvider
// hits its endpoint, so a short refresh interval on a large directory list
// never turns into a thundering herd against a third-party API.
const defaultDirectoryRateLimit = 5 // requests per second

// RawPoolCandidate is a hint surfaced by a directory provider: an address
// and a declared protocol kind, plus whatever liquidity/mint information the
// source happened to supply. Step 4 validation against the chain is the
// only authority on whether it becomes operational.
type RawPoolCandidate struct {
	Address      PoolAddress
	DeclaredKind PoolKind
	TokenA       TokenId
	TokenB       TokenId
	LiquidityUSD float64
	Source       string // provider name, for logging
	Label        string // protocol label, when the source supplies one (aggregator routes)
}

// DirectoryProvider sources candidate pool addresses. A failing provider is
// logged and skipped; discovery never fails solely because one source is
// unavailable.
type DirectoryProvider interface {
	Name() string
	Fetch(ctx context.Context) ([]RawPoolCandidate, error)
}

// majorTokenWhitelist is the configured set of mints considered "majors" for
// the directory liquidity filter.
type majorTokenWhitelist map[TokenId]struct{}

func newMajorTokenWhitelist(mints []TokenId) majorTokenWhitelist {
	w := make(majorTokenWhitelist, len(mints))
	for _, m := range mints {
		w[m] = struct{}{}
	}
	return w
}

func (w majorTokenWhitelist) contains(mint TokenId) bool {
	_, ok := w[mint]
	return ok
}

// HTTPDirectoryProvider fetches one JSON pool listing endpoint and parses it
// against the union of known response shapes: official/data/
// whirlpools record arrays, or a bare top-level array of any of those
// record shapes. Unknown/missing fields cause the individual record to be
// skipped, never the whole fetch.
type HTTPDirectoryProvider struct {
	name            string
	url             string
	httpClient      *http.Client
	majors          majorTokenWhitelist
	minLiquidityUSD float64
	topN            int
	limiter         *rate.Limiter
}

// NewHTTPDirectoryProvider builds a provider for one directory endpoint,
// rate-limited to defaultDirectoryRateLimit requests/second against its own
// endpoint (independent of every other provider's limiter).
func NewHTTPDirectoryProvider(name, url string, timeout time.Duration, majors majorTokenWhitelist, minLiquidityUSD float64, topN int) *HTTPDirectoryProvider {
	return &HTTPDirectoryProvider{
		name:            name,
		url:             url,
		httpClient:      &http.Client{Timeout: timeout},
		majors:          majors,
		minLiquidityUSD: minLiquidityUSD,
		topN:            topN,
		limiter:         rate.NewLimiter(rate.Limit(defaultDirectoryRateLimit), 1),
	}
}

// WithRateLimit overrides the provider's default request rate, for
// endpoints with a documented stricter quota.
func (p *HTTPDirectoryProvider) WithRateLimit(perSecond float64, burst int) *HTTPDirectoryProvider {
	p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return p
}

func (p *HTTPDirectoryProvider) Name() string { return p.name }

func (p *HTTPDirectoryProvider) Fetch(ctx context.Context) ([]RawPoolCandidate, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit wait: %w", p.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", p.name, err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: http get: %w", p.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", p.name, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", p.name, err)
	}

	records := parseDirectoryShapes(body)
	filtered := make([]RawPoolCandidate, 0, len(records))
	for _, r := range records {
		if !p.majors.contains(r.TokenA) && !p.majors.contains(r.TokenB) {
			continue
		}
		if r.LiquidityUSD < p.minLiquidityUSD {
			continue
		}
		r.Source = p.name
		filtered = append(filtered, r)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].LiquidityUSD > filtered[j].LiquidityUSD })
	if len(filtered) > p.topN {
		filtered = filtered[:p.topN]
	}
	return filtered, nil
}

// directoryRecord is the superset of fields used across every known
// directory response shape. json.Unmarshal leaves unused
// fields at their zero value; parseDirectoryShapes treats that as "field
// absent", matching the union-of-shapes contract.
type directoryRecord struct {
	ID        string  `json:"id"`
	AmmId     string  `json:"ammId"`
	Address   string  `json:"address"`
	BaseMint  string  `json:"baseMint"`
	QuoteMint string  `json:"quoteMint"`
	TokenA    *struct {
		Mint string `json:"mint"`
	} `json:"tokenA"`
	TokenB *struct {
		Mint string `json:"mint"`
	} `json:"tokenB"`
	Liquidity float64 `json:"liquidity"`
}

type directoryEnvelope struct {
	Official  []directoryRecord `json:"official"`
	Data      []directoryRecord `json:"data"`
	Whirlpools []directoryRecord `json:"whirlpools"`
	RoutePlan []struct {
		SwapInfo struct {
			AmmKey    string  `json:"ammKey"`
			Label     string  `json:"label"`
			Liquidity float64 `json:"liquidity"`
		} `json:"swapInfo"`
	} `json:"routePlan"`
}

// parseDirectoryShapes accepts any of the known response shapes:
// an envelope keyed by official/data/whirlpools/routePlan, or a bare
// top-level array of record objects.
func parseDirectoryShapes(body []byte) []RawPoolCandidate {
	var out []RawPoolCandidate

	var env directoryEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		out = append(out, recordsToCandidates(env.Official)...)
		out = append(out, recordsToCandidates(env.Data)...)
		out = append(out, recordsToCandidates(env.Whirlpools)...)
		for _, r := range env.RoutePlan {
			addr, ok := decodeBase58Address(r.SwapInfo.AmmKey)
			if !ok {
				continue
			}
			out = append(out, RawPoolCandidate{
				Address:      addr,
				LiquidityUSD: r.SwapInfo.Liquidity,
				Label:        r.SwapInfo.Label,
			})
		}
	}

	var arr []directoryRecord
	if err := json.Unmarshal(body, &arr); err == nil {
		out = append(out, recordsToCandidates(arr)...)
	}

	return out
}

func recordsToCandidates(records []directoryRecord) []RawPoolCandidate {
	out := make([]RawPoolCandidate, 0, len(records))
	for _, r := range records {
		addrStr := firstNonEmpty(r.ID, r.AmmId, r.Address)
		addr, ok := decodeBase58Address(addrStr)
		if !ok {
			continue
		}
		baseMintStr := r.BaseMint
		quoteMintStr := r.QuoteMint
		if r.TokenA != nil {
			baseMintStr = r.TokenA.Mint
		}
		if r.TokenB != nil {
			quoteMintStr = r.TokenB.Mint
		}
		tokenA, okA := decodeBase58Token(baseMintStr)
		tokenB, okB := decodeBase58Token(quoteMintStr)
		if !okA || !okB {
			continue
		}
		out = append(out, RawPoolCandidate{
			Address:      addr,
			TokenA:       tokenA,
			TokenB:       tokenB,
			LiquidityUSD: r.Liquidity,
		})
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func decodeBase58Address(s string) (PoolAddress, bool) {
	b, err := base58.Decode(s)
	if err != nil || len(b) != 32 {
		return PoolAddress{}, false
	}
	var p PoolAddress
	copy(p[:], b)
	return p, true
}

func decodeBase58Token(s string) (TokenId, bool) {
	b, err := base58.Decode(s)
	if err != nil || len(b) != 32 {
		return TokenId{}, false
	}
	var t TokenId
	copy(t[:], b)
	return t, true
}

// AggregatorProbe is one (input, output) mint pair probed against an
// aggregator quote endpoint during discovery step 2.
type AggregatorProbe struct {
	InputMint  TokenId
	OutputMint TokenId
}

// AggregatorProvider extracts pool addresses from an aggregator's route
// plan for a configured set of probe pairs.
type AggregatorProvider struct {
	name       string
	quoteURL   string // format string with %s/%s for input/output mint
	httpClient *http.Client
	probes     []AggregatorProbe
}

func NewAggregatorProvider(name, quoteURL string, timeout time.Duration, probes []AggregatorProbe) *AggregatorProvider {
	return &AggregatorProvider{
		name:       name,
		quoteURL:   quoteURL,
		httpClient: &http.Client{Timeout: timeout},
		probes:     probes,
	}
}

func (p *AggregatorProvider) Name() string { return p.name }

func (p *AggregatorProvider) Fetch(ctx context.Context) ([]RawPoolCandidate, error) {
	var out []RawPoolCandidate
	for _, probe := range p.probes {
		url := fmt.Sprintf(p.quoteURL, probe.InputMint.String(), probe.OutputMint.String())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			continue
		}
		resp, err := p.httpClient.Do(req)
		if err != nil {
			continue
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		resp.Body.Close()
		if err != nil {
			continue
		}
		var env directoryEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			continue
		}
		for _, r := range env.RoutePlan {
			addr, ok := decodeBase58Address(r.SwapInfo.AmmKey)
			if !ok {
				continue
			}
			out = append(out, RawPoolCandidate{
				Address:      addr,
				LiquidityUSD: r.SwapInfo.Liquidity,
				Source:       p.name,
				Label:        r.SwapInfo.Label,
			})
		}
	}
	return out, nil
}

// TokenVolume pairs a mint with its trailing daily volume, used by the
// token-list synthesis step to hint at pools worth validating even without
// a directory entry. Chain-side validation remains the only authority on
// whether the hint is real.
type TokenVolume struct {
	Mint   TokenId
	Pool   PoolAddress
	Kind   PoolKind
	Volume float64
}

// TokenListProvider synthesizes candidates for tokens whose volume exceeds
// a threshold. It never makes a network call itself: the caller supplies
// the already-fetched volume list (typically from the same directories
// consulted in step 1).
type TokenListProvider struct {
	name      string
	volumes   []TokenVolume
	threshold float64
}

func NewTokenListProvider(name string, volumes []TokenVolume, threshold float64) *TokenListProvider {
	return &TokenListProvider{name: name, volumes: volumes, threshold: threshold}
}

func (p *TokenListProvider) Name() string { return p.name }

func (p *TokenListProvider) Fetch(ctx context.Context) ([]RawPoolCandidate, error) {
	var out []RawPoolCandidate
	for _, v := range p.volumes {
		if v.Volume < p.threshold {
			continue
		}
		out = append(out, RawPoolCandidate{
			Address:      v.Pool,
			DeclaredKind: v.Kind,
			Source:       p.name,
		})
	}
	return out, nil
}
