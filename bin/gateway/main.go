package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/lijianying10/lnlgateway/pkgs/linkgw"
	"github.com/lijianying10/lnlgateway/pkgs/linkstore"
)

const defaultConfigPath = "config.json"

var configFilePath string

func main() {
	flag.StringVar(&configFilePath, "c", defaultConfigPath, "config file")
	flag.Parse()

	cfg, err := linkgw.NewConfig(resolveConfigPath(configFilePath, flagSet("c")))
	if err != nil {
		exitf("load config: %v", err)
	}
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		exitf("create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []linkgw.Option
	store, err := linkstore.Open(ctx, cfg.Store)
	if err != nil {
		exitf("open link store: %v", err)
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, linkgw.WithStore(store))
	}
	logger.Infow("link store ready", "driver", cfg.Store.Driver)

	rt, err := linkgw.NewRuntime(cfg, logger, opts...)
	if err != nil {
		exitf("create runtime: %v", err)
	}
	if err := rt.Run(ctx); err != nil {
		logger.Errorw("gateway stopped", "error", err)
		os.Exit(1)
	}
}

// resolveConfigPath drops the default path when no such file exists, so the
// gateway can run from environment variables alone.
func resolveConfigPath(path string, explicit bool) string {
	if explicit || path != defaultConfigPath {
		return path
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return path
}

func flagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	zcfg := zap.NewProductionConfig()
	if debug {
		zcfg = zap.NewDevelopmentConfig()
	}
	l, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
