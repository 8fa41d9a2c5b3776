// Package main is the entry point for the WorkService application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"workservice/internal/config"
	"workservice/internal/logger"
	"workservice/internal/server"
	"workservice/internal/service"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const (
	defaultConfigPath  = "conf/WorkService/WorkService.json"
	defaultLoggingPath = "conf/WorkService/Logging.json"
	defaultLogDir      = "log/WorkService"
)

func main() {
	os.Exit(run(context.Background(), os.Args))
}

// run executes the CLI and maps its outcome to a process exit code.
func run(ctx context.Context, args []string) int {
	err := newApp().Run(ctx, args)
	if err == nil {
		return 0
	}

	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		return ec.ExitCode()
	}
	fmt.Fprintln(os.Stderr, err)
	return int(service.ExitStartupFailed)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "workservice",
		Usage:   "Run the work application HTTP server as a managed service",
		Version: fmt.Sprintf("%s (built %s)", version, buildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to main configuration file",
				Value:   defaultConfigPath,
			},
			&cli.StringFlag{
				Name:    "logging",
				Aliases: []string{"l"},
				Usage:   "path to logging configuration file",
				Value:   defaultLoggingPath,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "install",
				Usage:  "register this executable as a Windows service",
				Action: installAction,
			},
			{
				Name:   "remove",
				Usage:  "unregister the Windows service",
				Action: removeAction,
			},
		},
		Action: serveAction,
		// run() owns the exit code.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

// baseDir returns the installation root for an absolute config path
// (<base>/conf/WorkService/WorkService.json), or "" for a relative one.
func baseDir(configPath string) string {
	if !filepath.IsAbs(configPath) {
		return ""
	}
	return filepath.Dir(filepath.Dir(filepath.Dir(configPath)))
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	loggingPath := cmd.String("logging")

	// Services start in the system directory; an absolute config path means
	// relative paths (logs, Logging.json) are resolved from the install root.
	if base := baseDir(configPath); base != "" {
		if err := os.Chdir(base); err != nil {
			return startupFailure(config.DefaultServiceName, defaultLogDir,
				fmt.Errorf("failed to chdir to %s: %w", base, err))
		}
	}

	if service.IsService() {
		logger.SetServiceMode(true)
	}

	cfg, lc, err := config.LoadSplit(configPath, loggingPath)
	if err != nil {
		return startupFailure(config.DefaultServiceName, defaultLogDir, err)
	}
	logDir := filepath.Dir(lc.FilePath)

	if err := logger.Init(*lc); err != nil {
		return startupFailure(cfg.Service.Name, logDir, fmt.Errorf("failed to initialize logger: %w", err))
	}
	defer logger.Close()

	log := logger.WithComponent("main")
	log.Info().
		Str("version", version).
		Str("service", cfg.Service.Name).
		Str("config", configPath).
		Str("logging", loggingPath).
		Str("addr", cfg.Server.Address()).
		Bool("service_mode", service.IsService()).
		Msg("Starting WorkService")

	stopWatcher := watchLogging(loggingPath)
	defer stopWatcher()

	ctrl := service.NewController(cfg.Service.Name, server.New(cfg.Server),
		service.WithUserStopCode(service.ControlCode(cfg.Service.UserStopCode)),
		service.WithDrainTimeout(cfg.DrainTimeout),
	)

	res, err := service.Run(ctx, ctrl)
	if err != nil {
		return startupFailure(cfg.Service.Name, logDir, err)
	}

	log.Info().
		Stringer("reason", res.Reason).
		Uint32("exit_code", res.ExitCode).
		Msg("WorkService stopped")

	if res.ExitCode != service.ExitOK {
		return cli.Exit("", int(res.ExitCode))
	}
	return nil
}

// watchLogging hot-reloads Logging.json. It returns a function that stops
// the watcher.
func watchLogging(loggingPath string) func() {
	log := logger.WithComponent("main")

	w, err := config.NewLoggingWatcher(loggingPath, func(lc *logger.Config) {
		if err := logger.Init(*lc); err != nil {
			logger.Error().Err(err).Msg("Failed to update logging configuration")
			return
		}
		// Init replaced the global logger, so log through the new one.
		reloaded := logger.WithComponent("main")
		reloaded.Info().Str("level", lc.Level).Msg("Logging configuration updated")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create logging watcher, hot reload disabled")
		return func() {}
	}
	if err := w.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start logging watcher")
		_ = w.Stop()
		return func() {}
	}

	return func() {
		if err := w.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping logging watcher")
		}
	}
}

// startupFailure records err where an operator can find it before logging
// is available and turns it into exit code 1.
func startupFailure(serviceName, logDir string, err error) error {
	service.ReportStartupError(serviceName, err)
	service.WriteStartupErrorFile(logDir, serviceName, err)
	return cli.Exit(fmt.Sprintf("Failed to start %s: %v", serviceName, err), int(service.ExitStartupFailed))
}

func installAction(ctx context.Context, cmd *cli.Command) error {
	configPath, err := filepath.Abs(cmd.String("config"))
	if err != nil {
		return err
	}
	loggingPath, err := filepath.Abs(cmd.String("logging"))
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	args := []string{"--config", configPath, "--logging", loggingPath}
	if err := service.Install(cfg.Service.Name, cfg.Service.DisplayName, cfg.Service.Description, args...); err != nil {
		return fmt.Errorf("install %s: %w", cfg.Service.Name, err)
	}
	fmt.Printf("Installed service %s (%s)\n", cfg.Service.Name, strings.Join(args, " "))
	return nil
}

func removeAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if err := service.Remove(cfg.Service.Name); err != nil {
		return fmt.Errorf("remove %s: %w", cfg.Service.Name, err)
	}
	fmt.Printf("Removed service %s\n", cfg.Service.Name)
	return nil
}
