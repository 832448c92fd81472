// ABOUTME: Entry point for the kevaboard Gemini message board
// ABOUTME: Runs the Gemini server or one pool reconciliation pass per host

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/kevachat/geminiboard/internal/board"
	"github.com/kevachat/geminiboard/internal/cache"
	"github.com/kevachat/geminiboard/internal/codec"
	"github.com/kevachat/geminiboard/internal/config"
	"github.com/kevachat/geminiboard/internal/gemini"
	"github.com/kevachat/geminiboard/internal/kevacoin"
	"github.com/kevachat/geminiboard/internal/locale"
	"github.com/kevachat/geminiboard/internal/lock"
	"github.com/kevachat/geminiboard/internal/media"
	"github.com/kevachat/geminiboard/internal/pool"
	"github.com/kevachat/geminiboard/internal/reconcile"
	"github.com/kevachat/geminiboard/internal/session"
)

// Version is set at build time.
var version = "dev"

const banner = `
  _                    _                         _
 | | _______   ____ _| |__   ___   __ _ _ __ __| |
 | |/ / _ \ \ / / _' | '_ \ / _ \ / _' | '__/ _' |
 |   <  __/\ V / (_| | |_) | (_) | (_| | | | (_| |
 |_|\_\___| \_/ \__,_|_.__/ \___/ \__,_|_|  \__,_|
`

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, hostArg())
	case "reconcile":
		err = runReconcile(ctx, hostArg())
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: kevaboard <command> [host]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve <host>      Start the Gemini server")
	fmt.Println("  reconcile <host>  Run one payment pool pass")
	fmt.Println("  version           Print the version")
}

func hostArg() string {
	if len(os.Args) < 3 || os.Args[2] == "" {
		usage()
		os.Exit(1)
	}
	return os.Args[2]
}

func runServe(ctx context.Context, host string) error {
	configPath := config.Path(host)

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Gemini:   %s\n", cfg.Server.Addr)
	green.Print("    ▶ ")
	fmt.Printf("Kevacoin: %s\n", cfg.Kevacoin.URL)
	green.Print("    ▶ ")
	if cfg.Pool.Cost > 0 {
		fmt.Printf("Cost:     %s\n", cfg.Pool.Cost)
	} else {
		fmt.Printf("Cost:     free\n")
	}
	fmt.Println()

	store, err := pool.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening pool database: %w", err)
	}
	defer store.Close()

	server, err := buildServer(cfg, store, logger)
	if err != nil {
		return err
	}

	logger.Info("starting kevaboard",
		"host", cfg.Server.Host,
		"config", configPath,
		"addr", cfg.Server.Addr,
	)

	return server.Run(ctx)
}

// buildServer wires the board components behind a Gemini server.
func buildServer(cfg *config.Config, store pool.Store, logger *slog.Logger) (*gemini.Server, error) {
	validator, err := codec.NewValidator(cfg.Patterns())
	if err != nil {
		return nil, fmt.Errorf("compiling board patterns: %w", err)
	}

	catalog, err := locale.Load(cfg.Locale.Path)
	if err != nil {
		return nil, fmt.Errorf("loading locale: %w", err)
	}

	client := kevacoin.New(kevacoin.Options{
		URL:      cfg.Kevacoin.URL,
		Username: cfg.Kevacoin.Username,
		Password: cfg.Kevacoin.Password,
		Timeout:  cfg.Kevacoin.Timeout,
		Logger:   logger,
	})

	c := cache.NewMemory(cfg.Cache.DefaultTTL, cfg.Cache.CleanupInterval)
	linker := board.Linker{Host: cfg.Server.Host, Port: cfg.Server.Port}
	views := board.NewViews(catalog)

	names := board.NewNames(client, c, cfg.Cache.DefaultTTL, logger)
	rooms := board.NewRooms(client, validator, names, c, cfg.Cache.RoomTTL, logger)
	reader := media.NewReader(client, c, cfg.Cache.DefaultTTL, logger)
	guard := session.New(c, cfg.Session.TTL)

	assembler := board.NewAssembler(board.AssemblerOptions{
		Validator: validator,
		Names:     names,
		Media:     reader,
		Linker:    linker,
		Catalog:   catalog,
		Views:     views,
		Cache:     c,
		TTL:       cfg.Cache.DefaultTTL,
		Logger:    logger,
	})

	submitter := pool.New(pool.Options{
		Store:       store,
		Ledger:      client,
		Wallet:      client,
		Guard:       guard,
		Validator:   validator,
		Invalidator: rooms,
		Config: pool.Config{
			Cost:          cfg.Pool.Cost,
			MinBalance:    cfg.Pool.MinBalance,
			Account:       cfg.Pool.Account,
			Confirmations: cfg.Pool.Confirmations,
			Timeout:       cfg.Pool.Timeout,
		},
		Logger: logger,
	})

	service := board.NewService(board.ServiceOptions{
		Rooms:       rooms,
		Names:       names,
		Assembler:   assembler,
		Attachments: reader,
		Guard:       guard,
		Submitter:   submitter,
		Views:       views,
		Catalog:     catalog,
		Linker:      linker,
		About:       cfg.Board.About,
		Logger:      logger,
	})

	router := gemini.NewRouter(gemini.RouterOptions{
		Board:   service,
		Prompt:  catalog.T("input"),
		Limiter: gemini.NewLimiter(cfg.Limits.SubmissionsPerMinute, cfg.Limits.Burst),
		Logger:  logger,
	})

	server, err := gemini.NewServer(gemini.ServerOptions{
		Addr:     cfg.Server.Addr,
		CertFile: cfg.Server.CertFile,
		KeyFile:  cfg.Server.KeyFile,
		Handler:  router,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini server: %w", err)
	}
	return server, nil
}

func runReconcile(ctx context.Context, host string) error {
	cfg, err := config.Load(config.Path(host))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	store, err := pool.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening pool database: %w", err)
	}
	defer store.Close()

	client := kevacoin.New(kevacoin.Options{
		URL:      cfg.Kevacoin.URL,
		Username: cfg.Kevacoin.Username,
		Password: cfg.Kevacoin.Password,
		Timeout:  cfg.Kevacoin.Timeout,
		Logger:   logger,
	})

	worker := reconcile.New(store, client, client, reconcile.Config{
		Confirmations: cfg.Pool.Confirmations,
		Timeout:       cfg.Pool.Timeout,
		LockPath:      filepath.Join(cfg.Pool.LockDir, lock.Name(host)),
	}, logger)

	result, err := worker.Run(ctx)
	if errors.Is(err, reconcile.ErrAlreadyRunning) {
		logger.Info("reconciliation already running", "host", host)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reconciling pool: %w", err)
	}

	logger.Info("reconciliation complete",
		"host", host,
		"sent", result.Sent,
		"expired", result.Expired,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"untouched", result.Untouched,
	)
	return nil
}
