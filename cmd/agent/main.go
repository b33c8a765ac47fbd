package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/cutroom/cutroom-agent/internal/api"
	"github.com/cutroom/cutroom-agent/internal/config"
	"github.com/cutroom/cutroom-agent/internal/db"
	"github.com/cutroom/cutroom-agent/internal/host"
	"github.com/cutroom/cutroom-agent/internal/logging"
	"github.com/cutroom/cutroom-agent/internal/runs"
	"github.com/cutroom/cutroom-agent/internal/settings"
	"github.com/cutroom/cutroom-agent/internal/ui"
)

var Version = "0.1.0"

func main() {
	cmd := &cli.Command{
		Name:   "agent",
		Usage:  "Editorial QC and multitrack alignment agent for NLE project dumps",
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the local agent with its HTTP API",
				Action: serveAction,
			},
			{
				Name:   "qc",
				Usage:  "Analyze a project dump and print the QC report",
				Action: qcAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "project",
						Aliases:  []string{"p"},
						Usage:    "Path to the project dump",
						Required: true,
					},
				},
			},
			{
				Name:   "align",
				Usage:  "Align multitrack clips against the reference timeline",
				Action: alignAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "project",
						Aliases:  []string{"p"},
						Usage:    "Path to the project dump",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "bin",
						Usage: "Multitrack bin name (default: TRACKS)",
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Write placements back to the project dump",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// bootstrap wires the pieces every command needs: config, logging,
// database, settings store and the run service.
type app struct {
	cfg    *config.EnvConfig
	logger *slog.Logger
	db     *db.DB
	repo   *runs.SQLiteRepository
	store  *settings.Store
	svc    *runs.Service
}

func bootstrap() (*app, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repo := runs.NewRepository(database.Conn())

	store, err := settings.NewStore(cfg.SettingsPath(), logger)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		db:     database,
		repo:   repo,
		store:  store,
		svc:    runs.NewService(repo, store, logger),
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	startTime := time.Now()

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("starting cutroom agent", "version", Version, "data_dir", a.cfg.DataDir())

	deviceID, err := ensureDeviceID(a.repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(a.repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                    CUTROOM AGENT v0.1.0                   ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", a.cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := a.store.Watch(watchCtx); err != nil {
			a.logger.Warn("settings watcher stopped", "error", err)
		}
	}()

	apiServer := api.NewServer(api.ServerConfig{
		Port:       a.cfg.Port(),
		Runs:       a.svc,
		Repository: a.repo,
		Settings:   a.store,
		Logger:     a.logger,
		StartTime:  startTime,
		DeviceID:   deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			a.logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			a.logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if a.cfg.Headless() {
		a.logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Logger: a.logger,
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	a.logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("failed to shutdown HTTP server", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

func qcAction(ctx context.Context, cmd *cli.Command) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	sess, err := host.LoadProject(cmd.String("project"))
	if err != nil {
		return err
	}

	run, _, err := a.svc.RunQC(ctx, sess)
	if err != nil {
		return err
	}

	fmt.Print(run.Report)
	if run.Errors > 0 {
		return fmt.Errorf("%d errors found", run.Errors)
	}
	return nil
}

func alignAction(ctx context.Context, cmd *cli.Command) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	sess, err := host.LoadProject(cmd.String("project"))
	if err != nil {
		return err
	}

	run, _, err := a.svc.RunAlign(ctx, sess, cmd.String("bin"))
	if err != nil {
		return err
	}

	fmt.Print(run.Report)

	if cmd.Bool("save") && run.Placed > 0 {
		if err := sess.Save(); err != nil {
			return fmt.Errorf("failed to save project dump: %w", err)
		}
		a.logger.Info("project dump updated", "path", cmd.String("project"))
	}
	return nil
}

func ensureDeviceID(repo runs.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo runs.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
