// Command spotify-export-stats runs the web application for browsing
// statistics derived from a Spotify data export.
package main

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"

	"spotify-export-stats/internal/config"
	"spotify-export-stats/internal/tenant"
	"spotify-export-stats/internal/token"
	"spotify-export-stats/internal/web"
	webfs "spotify-export-stats/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	var signer *token.Signer
	if cfg.SessionKey != "" {
		signer, err = token.NewSigner(cfg.SessionKey, cfg.SessionTTL)
		if err != nil {
			return fmt.Errorf("creating token signer: %w", err)
		}
	} else {
		logger.Warn("SESSION_KEY not set, using a random key; sessions will not survive restarts")
		signer = token.NewRandomSigner(cfg.SessionTTL)
	}

	tenants := tenant.NewStore(logger)

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}
	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:           cfg.Addr,
		Tenants:        tenants,
		Signer:         signer,
		Logger:         logger,
		SessionTTL:     cfg.SessionTTL,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		TemplatesFS:    templates,
		StaticFS:       static,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run()
}
