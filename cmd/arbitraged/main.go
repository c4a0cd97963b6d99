// cmd/arbitraged/main.go – Cobra CLI glue for the arbitrage engine.
// -----------------------------------------------------------
// Structure of this file
//   • Wiring (config -> ChainClient/Signer -> core collaborators)
//   • CLI Commands   – run, scan, pools
//   • Consolidation  – all commands mounted under root "arbitraged"
// -----------------------------------------------------------
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dexarb/core"
	"dexarb/internal/solanarpc"
	pkgconfig "dexarb/pkg/config"
	"dexarb/pkg/utils"
)

// wiring bundles every collaborator built from configuration, shared by
// run/scan/pools so each command only assembles what it actually needs.
type wiring struct {
	log       *logrus.Logger
	cfg       *pkgconfig.Config
	client    core.ChainClient
	catalogue *core.PoolCatalogue
	scanner   *core.OpportunityScanner
	planner   *core.ExecutionPlanner
}

func buildWiring() (*wiring, error) {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(utils.EnvOrDefault("ARB_LOG_LEVEL", "")); err == nil {
		log.SetLevel(lvl)
	}

	cfg, err := pkgconfig.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(lvl)
	}

	primary := utils.EnvOrDefault("ARB_RPC_ENDPOINT", cfg.RPC.PrimaryEndpoint)
	client := solanarpc.New(log, primary, cfg.RPC.BackupEndpoints)

	programKinds := make(map[core.ProgramId]core.PoolKind, len(cfg.Catalogue.ProgramKinds))
	for addr, kindName := range cfg.Catalogue.ProgramKinds {
		pk, err := core.ParsePubkey(addr)
		if err != nil {
			return nil, fmt.Errorf("program_kinds: %w", err)
		}
		kind, err := core.ParsePoolKind(kindName)
		if err != nil {
			return nil, fmt.Errorf("program_kinds[%s]: %w", addr, err)
		}
		programKinds[core.ProgramId(pk)] = kind
	}
	codec := core.NewPoolCodec(programKinds)

	fallback := make([]core.FallbackEntry, 0, len(cfg.Catalogue.FallbackPools))
	for _, f := range cfg.Catalogue.FallbackPools {
		addr, err := core.ParsePubkey(f.Address)
		if err != nil {
			return nil, fmt.Errorf("fallback_pools: %w", err)
		}
		kind, err := core.ParsePoolKind(f.Kind)
		if err != nil {
			return nil, fmt.Errorf("fallback_pools[%s]: %w", f.Address, err)
		}
		fallback = append(fallback, core.FallbackEntry{Address: core.PoolAddress(addr), Kind: kind})
	}

	directories := buildDirectoryProviders(cfg)

	refreshMinInterval := time.Duration(cfg.Catalogue.RefreshMinIntervalMS) * time.Millisecond
	catalogue := core.NewPoolCatalogue(log, client, codec, directories, fallback,
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
	if cfg.Scanner.MinProfitThresholdBaseUnits != 0 {
		cost.MinProfitThreshold = cfg.Scanner.MinProfitThresholdBaseUnits
	}

	var ladder core.ProbeLadder
	if len(cfg.Scanner.ProbeLadderBaseUnits) > 0 {
		ladder = core.ProbeLadder(cfg.Scanner.ProbeLadderBaseUnits)
	} else {
		ladder = core.DefaultProbeLadder(1_000_000)
	}
	scanner := core.NewOpportunityScanner(quotes, cost, ladder)
	planner := core.NewExecutionPlanner(client, core.SPLTokenProgramId)

	return &wiring{log: log, cfg: cfg, client: client, catalogue: catalogue, scanner: scanner, planner: planner}, nil
}

// buildDirectoryProviders turns the configured directory URLs into a flat
// HTTPDirectoryProvider list. No aggregator or token-list providers are
// built here, so discovery uses only these directories and the fallback
// pool list.
func buildDirectoryProviders(cfg *pkgconfig.Config) []core.DirectoryProvider {
	majors := make(map[core.TokenId]struct{}, len(cfg.Catalogue.MajorTokenWhitelist))
	for _, m := range cfg.Catalogue.MajorTokenWhitelist {
		pk, err := core.ParsePubkey(m)
		if err != nil {
			continue
		}
		majors[core.TokenId(pk)] = struct{}{}
	}

	providers := make([]core.DirectoryProvider, 0, len(cfg.Catalogue.DirectoryURLs))
	for i, url := range cfg.Catalogue.DirectoryURLs {
		name := fmt.Sprintf("directory-%d", i)
		providers = append(providers, core.NewHTTPDirectoryProvider(
			name, url, 10*time.Second, majors, cfg.Catalogue.MinDirectoryLiquidityUSD, cfg.Catalogue.TopNPerDirectory,
		))
	}
	return providers
}

func loadSigner(cfg *pkgconfig.Config) (core.Signer, error) {
	if envKey := os.Getenv("ARB_WALLET_PRIVATE_KEY"); envKey != "" {
		return solanarpc.LoadKeypairSignerFromEnv(envKey)
	}
	if cfg.Wallet.KeyFilePath == "" {
		return nil, fmt.Errorf("no wallet configured: set wallet.key_file_path or ARB_WALLET_PRIVATE_KEY")
	}
	return solanarpc.LoadKeypairSigner(cfg.Wallet.KeyFilePath)
}

var rootCmd = &cobra.Command{
	Use:   "arbitraged",
	Short: "Cross-venue AMM arbitrage engine",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the discover/scan/plan/submit loop until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, err := buildWiring()
		if err != nil {
			return err
		}
		signer, err := loadSigner(w.cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		balanceAccount, err := core.DeriveATA(signer.Wallet(), core.TokenId(mustZeroMint()), core.SPLTokenProgramId)
		if err != nil {
			return fmt.Errorf("derive balance account: %w", err)
		}

		coordinator := core.NewArbitrageCoordinator(
			w.log, w.client, signer, w.catalogue, w.scanner, w.planner,
			balanceAccount,
			time.Duration(w.cfg.Coordinator.IdleBackoffMS)*time.Millisecond,
			time.Duration(w.cfg.Coordinator.CycleCadenceMS)*time.Millisecond,
		)

		return coordinator.Run(ctx, func(report core.CycleReport) {
			w.log.WithFields(logrus.Fields{
				"opportunity_id": report.OpportunityID,
				"submitted":      report.Submitted,
				"balance_delta":  report.BalanceDelta,
				"err":            report.Err,
			}).Info("arbitraged: cycle complete")
		})
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one discovery+scan cycle and print opportunities, without submitting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, err := buildWiring()
		if err != nil {
			return err
		}
		ctx := context.Background()
		if err := w.catalogue.Discover(ctx); err != nil {
			return fmt.Errorf("discover: %w", err)
		}
		snapshot := w.catalogue.Snapshot()
		opportunities := w.scanner.Scan(snapshot)
		enc, err := json.MarshalIndent(opportunities, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(enc))
		return nil
	},
}

var poolsCmd = &cobra.Command{
	Use:   "pools",
	Short: "Print the current catalogue snapshot as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, err := buildWiring()
		if err != nil {
			return err
		}
		ctx := context.Background()
		if err := w.catalogue.Discover(ctx); err != nil {
			return fmt.Errorf("discover: %w", err)
		}
		enc, err := json.MarshalIndent(w.catalogue.Snapshot(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(enc))
		return nil
	},
}

// mustZeroMint returns the native SOL mint's well-known address, used to
// derive the wallet's wSOL associated token account as the balance-delta
// probe the coordinator samples every cycle.
func mustZeroMint() core.Pubkey {
	pk, err := core.ParsePubkey("So11111111111111111111111111111111111111112")
	if err != nil {
		panic(err)
	}
	return pk
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(poolsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
