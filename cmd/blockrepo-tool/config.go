package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
)

const (
	defaultLogFilename = "blockrepo-tool.log"
	defaultLogLevel    = "info"
)

// config holds the tool's command-line options, parsed with go-flags the
// same way btcd's own config.go does it: a struct of tagged fields fed
// straight to flags.Parser.
type config struct {
	DataDir  string `short:"b" long:"datadir" description:"Directory the repository's KV store lives in" required:"true"`
	LogDir   string `long:"logdir" description:"Directory to write the rotating log file to"`
	LogLevel string `long:"loglevel" description:"Logging level: trace, debug, info, warn, error, critical" default:"info"`
	ReIndex  bool   `long:"reindex" description:"Rebuild the transaction index to match the stored tx-index flag, then exit"`
	TxIndex  string `long:"txindex" description:"Set the tx-index flag to on/off before any reindex, then exit" choice:"on" choice:"off"`
	DumpTip  bool   `long:"dumptip" description:"Print the repository's tip hash/height and tx-index flag, then exit"`
}

func loadConfig() (*config, error) {
	cfg := config{
		LogLevel: defaultLogLevel,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.DataDir, "logs")
	}
	if cfg.TxIndex != "" && cfg.TxIndex != "on" && cfg.TxIndex != "off" {
		return nil, fmt.Errorf("invalid --txindex value %q", cfg.TxIndex)
	}

	return &cfg, nil
}

func (c *config) logFilePath() string {
	return filepath.Join(c.LogDir, defaultLogFilename)
}
