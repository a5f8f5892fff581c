// ABOUTME: Entry point for the conversational service binary
// ABOUTME: Subcommands: serve, init (starter config)

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/murmurhq/murmur/internal/auth"
	"github.com/murmurhq/murmur/internal/chat"
	"github.com/murmurhq/murmur/internal/config"
	"github.com/murmurhq/murmur/internal/llm"
	"github.com/murmurhq/murmur/internal/logging"
	"github.com/murmurhq/murmur/internal/store"
	"github.com/murmurhq/murmur/internal/token"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _ __ ___  _   _ _ __ _ __ ___  _   _ _ __
| '_ ' _ \| | | | '__| '_ ' _ \| | | | '__|
| | | | | | |_| | |  | | | | | | |_| | |
|_| |_| |_|\__,_|_|  |_| |_| |_|\__,_|_|     chat
`

// getConfigPath returns the path to the chat service config file.
// Priority: MURMUR_CHAT_CONFIG env var > XDG_CONFIG_HOME/murmur/chat.yaml > ~/.config/murmur/chat.yaml
func getConfigPath() string {
	if envPath := os.Getenv("MURMUR_CHAT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "chat.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "murmur", "chat.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: murmur-chat <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve  Start the conversational service")
		fmt.Println("  init   Create a starter config file")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.LoadChat(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.Setup(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.Addr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.DatabasePath)
	green.Print("    ▶ ")
	fmt.Printf("Model:    %s\n", cfg.LLM.Model)
	fmt.Println()

	st, err := store.NewChatStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	// Verification only: this service can authenticate callers but holds
	// no material that could mint tokens.
	pub, err := token.LoadPublicKey(cfg.PublicKeyPath)
	if err != nil {
		return fmt.Errorf("loading verification key (copy it from the auth service): %w", err)
	}
	verifier := token.NewVerifier(pub)

	timeout, err := cfg.LLMTimeout()
	if err != nil {
		return err
	}
	gen := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.URL, cfg.LLM.Model, timeout)

	svc := chat.NewService(st, gen, logger)
	mux := http.NewServeMux()
	chat.NewHandler(svc, logger).Routes(mux)

	return serveHTTP(ctx, logger, cfg.Server.Addr, auth.RequireUser(verifier)(mux))
}

// serveHTTP runs the server until ctx is cancelled, then drains connections.
func serveHTTP(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runInit() error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(config.DefaultChatConfig())
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Print("✓ ")
	fmt.Printf("Wrote starter config to %s\n", configPath)
	return nil
}
