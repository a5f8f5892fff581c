// ABOUTME: Entry point for the identity service binary
// ABOUTME: Subcommands: serve, init (starter config), keygen (signing keys)

package main

import (
	"context"
	"crypto/ed25519"
	"errors"
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
	"github.com/murmurhq/murmur/internal/config"
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
|_| |_| |_|\__,_|_|  |_| |_| |_|\__,_|_|     auth
`

// getConfigPath returns the path to the auth service config file.
// Priority: MURMUR_AUTH_CONFIG env var > XDG_CONFIG_HOME/murmur/auth.yaml > ~/.config/murmur/auth.yaml
func getConfigPath() string {
	if envPath := os.Getenv("MURMUR_AUTH_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "auth.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "murmur", "auth.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: murmur-auth <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve   Start the identity service")
		fmt.Println("  init    Create a starter config file")
		fmt.Println("  keygen  Generate the session signing key pair")
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
	case "keygen":
		err = runKeygen()
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

	cfg, err := config.LoadAuth(configPath)
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
	fmt.Println()

	st, err := store.NewUserStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	priv, err := token.LoadPrivateKey(cfg.PrivateKeyPath)
	if err != nil {
		return fmt.Errorf("loading signing key (run 'murmur-auth keygen' first): %w", err)
	}

	accessTTL, err := cfg.AccessTokenTTL()
	if err != nil {
		return err
	}
	refreshTTL, err := cfg.RefreshTokenTTL()
	if err != nil {
		return err
	}

	issuer := token.NewIssuer(priv)
	verifier := token.NewVerifier(priv.Public().(ed25519.PublicKey))
	policy := auth.CookiePolicy{
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		Secure:     cfg.SecureCookies,
	}

	mux := http.NewServeMux()
	auth.NewHandler(st, issuer, verifier, policy, logger).Routes(mux)

	return serveHTTP(ctx, logger, cfg.Server.Addr, mux)
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

	data, err := yaml.Marshal(config.DefaultAuthConfig())
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

func runKeygen() error {
	cfg := config.DefaultAuthConfig()
	if loaded, err := config.LoadAuth(getConfigPath()); err == nil {
		cfg = loaded
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	privPath := cfg.PrivateKeyPath
	pubPath := publicKeyPathFor(privPath)

	if _, err := os.Stat(privPath); err == nil {
		return fmt.Errorf("key already exists at %s", privPath)
	}

	pub, priv, err := token.GenerateKeyPair()
	if err != nil {
		return err
	}

	privPEM, err := token.EncodePrivateKeyPEM(priv)
	if err != nil {
		return err
	}
	pubPEM, err := token.EncodePublicKeyPEM(pub)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(privPath), 0o755); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Print("✓ ")
	fmt.Printf("Wrote private key to %s\n", privPath)
	green.Print("✓ ")
	fmt.Printf("Wrote public key to %s (copy this to the chat service)\n", pubPath)
	return nil
}

// publicKeyPathFor derives the public key path from the private key path,
// e.g. keys/session.key -> keys/session.pub.
func publicKeyPathFor(privPath string) string {
	ext := filepath.Ext(privPath)
	return privPath[:len(privPath)-len(ext)] + ".pub"
}
