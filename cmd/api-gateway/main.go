package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/internal/shared/config"
	"github.com/radieske/racers-escrow/internal/shared/httpx"
	"github.com/radieske/racers-escrow/internal/shared/logger"
)

func rp(to string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(to)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream %q", to)
	}
	return httputil.NewSingleHostReverseProxy(u), nil
}

// newHandler monta as rotas /api/<serviço>/* para cada upstream.
func newHandler(escrowURL, vaultURL, feedURL string) (http.Handler, error) {
	escrow, err := rp(escrowURL)
	if err != nil {
		return nil, err
	}
	vault, err := rp(vaultURL)
	if err != nil {
		return nil, err
	}
	feed, err := rp(feedURL)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(withCORS)

	// escrow (ex.: /api/escrow/races/* -> escrow-service)
	r.Handle("/api/escrow/*", http.StripPrefix("/api/escrow", escrow))

	// vault (ex.: /api/vault/vault/* -> vault-service)
	r.Handle("/api/vault/*", http.StripPrefix("/api/vault", vault))

	// feed (ex.: /api/feed/ws -> race-feed-service)
	r.Handle("/api/feed/*", http.StripPrefix("/api/feed", feed))

	return r, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	h, err := newHandler(cfg.EscrowURL, cfg.VaultURL, cfg.FeedURL)
	if err != nil {
		log.Fatal("gateway config", zap.Error(err))
	}

	addr := ":" + cfg.HTTPPort
	log.Info("api-gateway listening", zap.String("addr", addr),
		zap.String("escrow", cfg.EscrowURL), zap.String("vault", cfg.VaultURL), zap.String("feed", cfg.FeedURL))
	if err := http.ListenAndServe(addr, h); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("gateway failed", zap.Error(err))
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+httpx.SignerHeader)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
