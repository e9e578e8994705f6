// -----------------------------------------------------------------------
// Hydrun - Simulation job executor and progress monitor service
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hydrun/internal/app"
	"github.com/ternarybob/hydrun/internal/common"
	"github.com/ternarybob/hydrun/internal/server"
)

// configPaths collects repeated -config flags; later files override
// earlier ones.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP  = flag.Int("p", 0, "Server port (shorthand)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version and exit")
	showVersionV = flag.Bool("v", false, "Print version and exit (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (repeatable)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

// loadConfiguration resolves config precedence: defaults, then TOML
// files, then HYDRUN_* environment, then command-line flags.
func loadConfiguration() (*common.Config, error) {
	if len(configFiles) == 0 {
		for _, candidate := range []string{"hydrun.toml", "deployments/local/hydrun.toml"} {
			if _, err := os.Stat(candidate); err == nil {
				configFiles = append(configFiles, candidate)
				break
			}
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		return nil, err
	}

	port := *serverPort
	if *serverPortP != 0 {
		port = *serverPortP
	}
	common.ApplyFlagOverrides(config, port, *serverHost)
	return config, nil
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("hydrun %s (build %s)\n", common.GetVersion(), common.GetBuild())
		return
	}

	config, err := loadConfiguration()
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Strs("paths", configFiles).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("address", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)).
		Str("work_root", config.Simulation.WorkRoot).
		Str("poll_interval", config.Simulation.PollInterval).
		Msg("Configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	srv := server.New(application)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("Server goroutine panicked")
			}
		}()
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	logger.Info().Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt received, shutting down")

	// Running simulations are left alive; they keep writing artifacts
	// and completion is re-derivable from them.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Shutdown incomplete")
	}
}
