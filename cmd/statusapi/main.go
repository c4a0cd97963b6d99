// cmd/statusapi/main.go – read-only HTTP status server for the arbitrage
// engine's catalogue and scanner.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"dexarb/core"
	"dexarb/internal/solanarpc"
	pkgconfig "dexarb/pkg/config"
)

// server holds the read-only view refreshed on a timer in the background;
// HTTP handlers only ever read the latest snapshot under a mutex, never
// touch ChainClient directly.
type server struct {
	log *logrus.Logger

	mu            sync.RWMutex
	pools         map[core.PoolAddress]core.PoolState
	opportunities []core.Opportunity

	catalogue *core.PoolCatalogue
	scanner   *core.OpportunityScanner
}

func (s *server) refreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.refreshOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *server) refreshOnce(ctx context.Context) {
	if _, err := s.catalogue.Refresh(ctx, false); err != nil {
		if err := s.catalogue.Discover(ctx); err != nil {
			s.log.WithError(err).Warn("statusapi: discover failed")
			return
		}
	}
	snapshot := s.catalogue.Snapshot()
	opportunities := s.scanner.Scan(snapshot)

	s.mu.Lock()
	s.pools = snapshot
	s.opportunities = opportunities
	s.mu.Unlock()
}

func (s *server) poolsHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.pools)
}

func (s *server) opportunitiesHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.opportunities)
}

func main() {
	log := logrus.New()
	cfg, err := pkgconfig.LoadFromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(lvl)
	}

	primary := os.Getenv("ARB_RPC_ENDPOINT")
	if primary == "" {
		primary = cfg.RPC.PrimaryEndpoint
	}
	client := solanarpc.New(log, primary, cfg.RPC.BackupEndpoints)

	programKinds := make(map[core.ProgramId]core.PoolKind, len(cfg.Catalogue.ProgramKinds))
	for addr, kindName := range cfg.Catalogue.ProgramKinds {
		pk, err := core.ParsePubkey(addr)
		if err != nil {
			log.Fatalf("program_kinds: %v", err)
		}
		kind, err := core.ParsePoolKind(kindName)
		if err != nil {
			log.Fatalf("program_kinds[%s]: %v", addr, err)
		}
		programKinds[core.ProgramId(pk)] = kind
	}
	codec := core.NewPoolCodec(programKinds)

	fallback := make([]core.FallbackEntry, 0, len(cfg.Catalogue.FallbackPools))
	for _, f := range cfg.Catalogue.FallbackPools {
		addr, err := core.ParsePubkey(f.Address)
		if err != nil {
			log.Fatalf("fallback_pools: %v", err)
		}
		kind, err := core.ParsePoolKind(f.Kind)
		if err != nil {
			log.Fatalf("fallback_pools[%s]: %v", f.Address, err)
		}
		fallback = append(fallback, core.FallbackEntry{Address: core.PoolAddress(addr), Kind: kind})
	}

	refreshMinInterval := time.Duration(cfg.Catalogue.RefreshMinIntervalMS) * time.Millisecond
	catalogue := core.NewPoolCatalogue(log, client, codec, nil, fallback,
		cfg.Catalogue.MinPoolLiquidityReserve, refreshMinInterval, cfg.Catalogue.MaxConcurrentRefresh)

	quotes := core.NewQuoteEngine(nil)
	cost := core.NewCostModel(core.NetworkFeeConfig{
		BaseFee:          cfg.Network.BaseFee,
		PriorityFee:      cfg.Network.PriorityFee,
		ComputeUnits:     cfg.Network.ComputeUnits,
		ComputeUnitPrice: cfg.Network.ComputeUnitPrice,
		ATARent:          cfg.Network.ATARent,
		ProtocolFee:      cfg.Network.ProtocolFee,
		SlippageBuffer:   cfg.Network.SlippageBuffer,
	})
	var ladder core.ProbeLadder
	if len(cfg.Scanner.ProbeLadderBaseUnits) > 0 {
		ladder = core.ProbeLadder(cfg.Scanner.ProbeLadderBaseUnits)
	} else {
		ladder = core.DefaultProbeLadder(1_000_000)
	}
	scanner := core.NewOpportunityScanner(quotes, cost, ladder)

	srv := &server{log: log, catalogue: catalogue, scanner: scanner}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.refreshLoop(ctx, refreshMinInterval)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/pools", srv.poolsHandler)
	r.Get("/opportunities", srv.opportunitiesHandler)

	addr := cfg.StatusAPI.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:8787"
	}
	log.Printf("statusapi listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
