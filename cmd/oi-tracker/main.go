// Command oi-tracker follows open interest on NSE index option chains.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"nse-oi-tracker/internal/cli"
	"nse-oi-tracker/internal/config"
	"nse-oi-tracker/internal/logging"
)

func main() {
	// --config and --debug must be known before the command tree is built.
	pre := pflag.NewFlagSet("oi-tracker", pflag.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.Usage = func() {}
	configDir := pre.String("config", "", "")
	debug := pre.Bool("debug", false, "")
	pre.BoolP("help", "h", false, "")
	_ = pre.Parse(os.Args[1:])

	if *configDir == "" {
		*configDir = config.DefaultConfigDir()
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logCfg := logging.DefaultLogConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Console = cfg.Log.Console
	logCfg.NoColor = !cfg.UI.ColorEnabled
	logCfg.File = cfg.Log.File
	logCfg.FilePath = filepath.Join(*configDir, "logs", "tracker.log")
	if *debug {
		logCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithConfig(logCfg)

	ctx := context.Background()
	app := cli.NewApp(ctx, cfg, logger)
	defer app.Close()

	if err := cli.NewRootCmd(app).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		app.Close()
		os.Exit(1)
	}
}
