// Command blockrepo-tool is a small operator utility for the block
// repository: it inspects and repairs the on-disk tip/tx-index state
// without requiring a full node binary. Its shape — go-flags for options,
// logrotate under btclog, a validator pre-flight before touching the
// store — follows the same layout as the teacher's own database tooling.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/chaincore/blockrepo"
	"github.com/chaincore/blockrepo/codec"
	"github.com/chaincore/blockrepo/kv/kvmdbx"
	"github.com/chaincore/blockrepo/validatorchain"
)

var log btclog.Logger = btclog.Disabled

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logFile, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx := context.Background()

	preflight := validatorchain.Chain{
		func(context.Context) error { return validateDataDir(cfg.DataDir) },
		func(context.Context) error { return validateSchemaCompatible(cfg.DataDir) },
	}
	if err := preflight.Run(ctx); err != nil {
		return fmt.Errorf("pre-flight checks failed: %w", err)
	}

	backend, err := kvmdbx.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open repository store: %w", err)
	}

	repo, err := blockrepo.New(backend, rawTipCodec{}, &codec.Network{}, blockrepo.Hooks{})
	if err != nil {
		backend.Close()
		return fmt.Errorf("construct repository: %w", err)
	}
	if err := repo.Initialize(ctx); err != nil {
		backend.Close()
		return fmt.Errorf("initialize repository: %w", err)
	}
	defer repo.Dispose()

	if cfg.TxIndex != "" {
		enabled := cfg.TxIndex == "on"
		if err := repo.SetTxIndex(ctx, enabled); err != nil {
			return fmt.Errorf("set tx-index flag: %w", err)
		}
		log.Infof("tx-index flag set to %v", enabled)
	}

	if cfg.ReIndex {
		if repo.TxIndex() {
			return fmt.Errorf("refusing to reindex: stored tx-index flag is on and this tool " +
				"has no chain-specific block codec; run reindex from the node binary instead")
		}
		if err := repo.ReIndex(ctx, blockrepo.WithProgress(func(done, total int) {
			log.Infof("reindex progress: %d/%d", done, total)
		})); err != nil {
			return fmt.Errorf("reindex: %w", err)
		}
		log.Info("reindex complete")
	}

	if cfg.DumpTip || (cfg.TxIndex == "" && !cfg.ReIndex) {
		tip := repo.TipHashAndHeight()
		fmt.Printf("tip: hash=%s height=%d txindex=%v\n", tip.Hash, tip.Height, repo.TxIndex())
	}

	return nil
}

func setupLogging(cfg *config) (*rotator.Rotator, error) {
	if err := os.MkdirAll(cfg.LogDir, 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	r, err := rotator.New(cfg.logFilePath(), 10*1024, false, 3)
	if err != nil {
		return nil, fmt.Errorf("create log rotator: %w", err)
	}

	backend := btclog.NewBackend(r)
	level, ok := btclog.LevelFromString(cfg.LogLevel)
	if !ok {
		level = btclog.LevelInfo
	}
	l := backend.Logger("TOOL")
	l.SetLevel(level)
	log = l
	blockrepo.UseLogger(backend.Logger("REPO"))

	return r, nil
}
