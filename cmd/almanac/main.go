package main

import (
	"log/slog"
	"net/http"
	"os"

	"almanac/internal/config"
	"almanac/internal/metrics"
	"almanac/server"
	"almanac/server/auth"
	"almanac/server/auth/static"
	"almanac/server/storage"
	"almanac/server/storage/memory"
	"almanac/server/storage/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	store, err := newStore(cfg)
	if err != nil {
		logger.Error("store init failed", "error", err)
		os.Exit(1)
	}

	verifier := newVerifier(cfg)

	m := metrics.New()
	handler := server.New(store, verifier, &server.Options{Logger: logger})

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/", m.Instrument(handler))

	logger.Info("almanac listening",
		"addr", cfg.Addr,
		"auth_mode", cfg.AuthMode,
		"db_path", cfg.DBPath)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func newStore(cfg config.Config) (storage.Store, error) {
	if cfg.DBPath == "" {
		return memory.New(), nil
	}
	return sqlite.Open(cfg.DBPath)
}

func newVerifier(cfg config.Config) auth.Verifier {
	if cfg.AuthMode == "static" {
		tokens := static.New()
		for token, uid := range cfg.TokenPairs() {
			tokens.Add(token, uid)
		}
		return tokens
	}
	return &auth.JWTVerifier{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}
}
