package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"ots/go-core/internal/abi"
	"ots/go-core/internal/adapters/rpc"
	"ots/go-core/internal/chain"
	"ots/go-core/internal/config"
	"ots/go-core/internal/keyjar"
	"ots/go-core/internal/platform/privacylog"
	"ots/go-core/internal/platform/ratelimiter"
	"ots/go-core/internal/seedjar"
	"ots/go-core/internal/wallet"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "Path to ots.yaml (optional)")
	network := flag.String("network", "", "Network override: mainnet | testnet | stagenet")
	flag.Parse()
	if *showVersion {
		fmt.Printf("ots-signer version=%s core=%d.%d.%d commit=%s build_date=%s\n",
			version, abi.VersionMajor, abi.VersionMinor, abi.VersionPatch, commit, buildDate)
		return
	}

	cfg, err := config.LoadFromPath(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ots-signer: %v\n", err)
		os.Exit(2)
	}
	if *network != "" {
		if cfg.Network, err = chain.ParseNetwork(*network); err != nil {
			fmt.Fprintf(os.Stderr, "ots-signer: %v\n", err)
			os.Exit(2)
		}
	}

	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("ots-signer starting", "version", version, "network", cfg.Network.String())
	if err := run(ctx, cfg, logger, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("ots-signer failed", "err", err)
		os.Exit(1)
	}
	logger.Info("ots-signer stopped")
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler
	if cfg.LogFormat == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(privacylog.WrapHandler(h))
}

// run wires the jars and the bridge and serves RPC on in/out until EOF or
// ctx is done. Jars are wiped on return.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger, in io.Reader, out io.Writer) error {
	reg, err := cfg.Registry()
	if err != nil {
		return fmt.Errorf("language registry: %w", err)
	}

	var registerer prometheus.Registerer
	var metrics *prometheus.Registry
	if cfg.Metrics {
		metrics = prometheus.NewRegistry()
		registerer = metrics
	}

	keyOpts := []keyjar.Option{
		keyjar.WithLogger(logger),
		keyjar.WithRegisterer(registerer),
		keyjar.WithLookahead(wallet.Lookahead{Accounts: cfg.WalletAccounts, SubAddresses: cfg.WalletSubAddrs}),
	}
	if cfg.KeyRetention > 0 {
		keyOpts = append(keyOpts, keyjar.WithRetention(keyjar.IdleRetention(cfg.KeyRetention)))
	}
	keys, err := keyjar.New(keyOpts...)
	if err != nil {
		return err
	}
	defer keys.Close()
	seeds := seedjar.New(seedjar.WithLogger(logger), seedjar.WithRegisterer(registerer))
	defer seeds.Close()

	bridge := abi.New(keys, seeds,
		abi.WithRegistry(reg),
		abi.WithNetwork(cfg.Network),
		abi.WithEstimator(chain.Default),
		abi.WithLogger(logger),
		abi.WithDecryptLimits(
			ratelimiter.New(cfg.DecryptRate, cfg.DecryptBurst),
			ratelimiter.NewLockout(cfg.LockoutBase, cfg.LockoutMax),
		),
	)
	srv := rpc.NewServer(bridge, rpc.WithLogger(logger))
	err = srv.Serve(ctx, in, out)
	if metrics != nil {
		logMetrics(logger, metrics)
	}
	return err
}

// logMetrics writes the final collector values; the signer has no network
// listener to scrape.
func logMetrics(logger *slog.Logger, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		logger.Warn("gather metrics", "err", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			value := m.GetCounter().GetValue()
			if g := m.GetGauge(); g != nil {
				value = g.GetValue()
			}
			logger.Info("metric", "name", mf.GetName(), "value", value)
		}
	}
}
