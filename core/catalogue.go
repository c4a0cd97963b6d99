package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// catalogueEntry is the bookkeeping PoolCatalogue keeps alongside the public
// PoolState: the declared kind a candidate arrived with (needed to re-probe
// it on refresh) and the consecutive-failure counter that drives eviction.
type catalogueEntry struct {
	state               PoolState
	declaredKind        PoolKind
	consecutiveFailures int
}

// FallbackEntry is one hardcoded (address, kind) pair used only when every
// directory/aggregator/token-list tier produces zero validated pools. It is
// deliberately not a synthetic/mock pool: every fallback entry is still
// validated against the chain exactly like any other candidate before it
// is trusted.
type FallbackEntry struct {
	Address PoolAddress
	Kind    PoolKind
}

// RefreshReport summarizes one PoolCatalogue.Refresh call.
type RefreshReport struct {
	Refreshed int
	Evicted   []PoolAddress
	Failed    []PoolAddress
	Skipped   bool // true when called before refreshMinInterval elapsed and force=false
}

// maxConsecutiveFailures is the number of consecutive refresh failures a
// pool tolerates before it is evicted from the catalogue (see the
// "mark failed once, evict on the next" rule).
const maxConsecutiveFailures = 2

// PoolCatalogue discovers, validates, and periodically refreshes the set of
// pools the scanner is allowed to consider. Discovery fans out across
// directories, an aggregator, and token-list hints; every candidate —
// regardless of source — is only trusted once PoolCodec has decoded it from
// live account data and PoolState.Validate has accepted it.
type PoolCatalogue struct {
	log    *logrus.Logger
	client ChainClient
	codec  *PoolCodec

	directories []DirectoryProvider
	fallback    []FallbackEntry

	minLiquidity         uint64
	refreshMinInterval   time.Duration
	maxConcurrentRefresh int

	mu          sync.RWMutex
	pools       map[PoolAddress]*catalogueEntry
	lastRefresh time.Time
}

// NewPoolCatalogue builds a catalogue. directories is the full set of
// discovery-tier providers (HTTP directories, the aggregator probe, and the
// token-list synthesizer all implement DirectoryProvider uniformly); their
// relative tiering is a property of what each provider returns, not of this
// type.
func NewPoolCatalogue(log *logrus.Logger, client ChainClient, codec *PoolCodec, directories []DirectoryProvider, fallback []FallbackEntry, minLiquidity uint64, refreshMinInterval time.Duration, maxConcurrentRefresh int) *PoolCatalogue {
	return &PoolCatalogue{
		log:                  log,
		client:               client,
		codec:                codec,
		directories:          directories,
		fallback:             fallback,
		minLiquidity:         minLiquidity,
		refreshMinInterval:   refreshMinInterval,
		maxConcurrentRefresh: maxConcurrentRefresh,
		pools:                make(map[PoolAddress]*catalogueEntry),
	}
}

// Discover runs the full multi-tier discovery protocol and replaces the
// catalogue's pool set. It returns CatalogueError{Kind: CatalogueNoOperationalPools}
// only when every tier, including the fallback list, yields nothing that
// survives validation.
func (c *PoolCatalogue) Discover(ctx context.Context) error {
	candidates := c.collectCandidates(ctx, c.directories)
	validated := c.validateAll(ctx, candidates)

	if len(validated) == 0 {
		c.log.Warn("no pools survived directory/aggregator/token-list discovery, trying fallback list")
		fallbackCandidates := make([]RawPoolCandidate, 0, len(c.fallback))
		for _, fb := range c.fallback {
			fallbackCandidates = append(fallbackCandidates, RawPoolCandidate{
				Address:      fb.Address,
				DeclaredKind: fb.Kind,
				Source:       "fallback",
			})
		}
		validated = c.validateAll(ctx, fallbackCandidates)
	}

	if len(validated) == 0 {
		return errNoOperationalPools
	}

	c.mu.Lock()
	c.pools = validated
	c.lastRefresh = time.Now()
	c.mu.Unlock()
	return nil
}

// collectCandidates fans every directory provider out concurrently. A
// provider that errors is logged and skipped; discovery as a whole never
// fails because one source is unreachable.
func (c *PoolCatalogue) collectCandidates(ctx context.Context, providers []DirectoryProvider) []RawPoolCandidate {
	type result struct {
		name string
		cand []RawPoolCandidate
		err  error
	}
	results := make(chan result, len(providers))
	var wg sync.WaitGroup
	for _, p := range providers {
		wg.Add(1)
		go func(p DirectoryProvider) {
			defer wg.Done()
			cand, err := p.Fetch(ctx)
			results <- result{name: p.Name(), cand: cand, err: err}
		}(p)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var all []RawPoolCandidate
	for r := range results {
		if r.err != nil {
			c.log.WithError(r.err).WithField("provider", r.name).Warn("directory provider failed, skipping")
			continue
		}
		all = append(all, r.cand...)
	}
	return all
}

// validateAll decodes and validates every candidate against the chain,
// retaining only the first validated occurrence of each address. Candidates
// arrive in the order collectCandidates gathered them, which across providers
// is the order their fetches completed in, not a provider priority.
func (c *PoolCatalogue) validateAll(ctx context.Context, candidates []RawPoolCandidate) map[PoolAddress]*catalogueEntry {
	validated := make(map[PoolAddress]*catalogueEntry, len(candidates))
	for _, cand := range candidates {
		if _, exists := validated[cand.Address]; exists {
			continue
		}
		entry, err := c.validate(ctx, cand)
		if err != nil {
			c.log.WithError(err).WithFields(logrus.Fields{
				"address": cand.Address,
				"source":  cand.Source,
			}).Debug("candidate rejected")
			continue
		}
		validated[cand.Address] = entry
	}
	return validated
}

// validate fetches the account, decodes it, and applies the invariant
// checks from PoolState.Validate. It is the single chokepoint every
// candidate — from any tier — must pass before it is trusted.
func (c *PoolCatalogue) validate(ctx context.Context, cand RawPoolCandidate) (*catalogueEntry, error) {
	account, err := c.client.GetAccount(ctx, cand.Address)
	if err != nil {
		return nil, &ClientError{Op: "GetAccount", Err: err}
	}
	ps, err := c.codec.Decode(ctx, c.client, cand.Address, account.Owner, account.Data)
	if err != nil {
		return nil, err
	}
	if cand.DeclaredKind != 0 && cand.DeclaredKind != ps.Kind {
		return nil, &CatalogueError{
			Kind: CatalogueDeclaredKindMismatch,
			Err:  fmt.Errorf("%s: directory declared %s, chain decodes as %s", cand.Address, cand.DeclaredKind, ps.Kind),
		}
	}
	if err := ps.Validate(c.minLiquidity); err != nil {
		return nil, err
	}
	return &catalogueEntry{state: ps, declaredKind: ps.Kind}, nil
}

// Refresh re-validates every currently catalogued pool, replacing its
// PoolState on success. A pool that fails is marked failed once and kept;
// a second consecutive failure evicts it.
// If force is false and less than refreshMinInterval has elapsed since the
// last successful refresh, Refresh is a no-op and reports Skipped=true.
func (c *PoolCatalogue) Refresh(ctx context.Context, force bool) (RefreshReport, error) {
	c.mu.RLock()
	since := time.Since(c.lastRefresh)
	addrs := make([]PoolAddress, 0, len(c.pools))
	for addr := range c.pools {
		addrs = append(addrs, addr)
	}
	c.mu.RUnlock()

	if !force && since < c.refreshMinInterval {
		return RefreshReport{Skipped: true}, nil
	}
	if len(addrs) == 0 {
		return RefreshReport{}, errNoOperationalPools
	}

	type outcome struct {
		addr  PoolAddress
		entry *catalogueEntry
		err   error
	}
	sem := make(chan struct{}, c.maxConcurrentRefresh)
	results := make(chan outcome, len(addrs))
	var wg sync.WaitGroup

	for _, addr := range addrs {
		c.mu.RLock()
		declaredKind := c.pools[addr].declaredKind
		c.mu.RUnlock()

		wg.Add(1)
		go func(addr PoolAddress, kind PoolKind) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			entry, err := c.validate(ctx, RawPoolCandidate{Address: addr, DeclaredKind: kind, Source: "refresh"})
			results <- outcome{addr: addr, entry: entry, err: err}
		}(addr, declaredKind)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	report := RefreshReport{}
	c.mu.Lock()
	defer c.mu.Unlock()
	for o := range results {
		if o.err != nil {
			c.log.WithError(o.err).WithField("pool", o.addr).Debug("refresh failed")
			existing, ok := c.pools[o.addr]
			if !ok {
				continue
			}
			existing.consecutiveFailures++
			report.Failed = append(report.Failed, o.addr)
			if existing.consecutiveFailures >= maxConsecutiveFailures {
				delete(c.pools, o.addr)
				report.Evicted = append(report.Evicted, o.addr)
			}
			continue
		}
		o.entry.consecutiveFailures = 0
		c.pools[o.addr] = o.entry
		report.Refreshed++
	}
	c.lastRefresh = time.Now()
	return report, nil
}

// Snapshot returns a copy of the currently catalogued pool states, safe for
// the caller to iterate without holding any lock.
func (c *PoolCatalogue) Snapshot() map[PoolAddress]PoolState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[PoolAddress]PoolState, len(c.pools))
	for addr, entry := range c.pools {
		out[addr] = entry.state
	}
	return out
}

// Len reports the number of currently catalogued pools.
func (c *PoolCatalogue) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pools)
}
