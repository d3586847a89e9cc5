package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geocoding-cli/internal/config"
	"github.com/sells-group/geocoding-cli/internal/enrich"
	"github.com/sells-group/geocoding-cli/internal/record"
	"github.com/sells-group/geocoding-cli/pkg/geocode"
)

const maxEnrichBody = 32 << 20

var (
	servePort   int
	serveAPIKey string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the enrichment stream over HTTP (JSON Lines in, JSON Lines out)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		key := cfg.Geocode.APIKey
		if serveAPIKey != "" {
			key = serveAPIKey
		}
		apiKey, err := resolveAPIKey(ctx, key, cfg.Credential)
		if err != nil {
			return err
		}
		client, err := newGeocodeClient(cfg.Geocode, apiKey, cfg.Geocode.Unit)
		if err != nil {
			return err
		}

		router := buildRouter(client, cfg.Geocode, cfg.Server.CORSOrigins)
		return startServer(ctx, router, resolvePort(servePort, cfg.Server.Port))
	},
}

// buildRouter wires the HTTP routes. Each request runs its own enricher on
// the shared client.
func buildRouter(client geocode.Client, gc config.GeocodeConfig, origins []string) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	if len(origins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.With(middleware.RequestSize(maxEnrichBody)).Post("/v1/enrich", func(w http.ResponseWriter, r *http.Request) {
		fields := r.URL.Query()["field"]
		if len(fields) == 0 {
			fields = gc.Fields
		}

		e, err := enrich.New(client, enrich.Config{
			Fields:      fields,
			Workers:     gc.Threads,
			Window:      gc.Window,
			Placeholder: gc.NullValue,
		})
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		var buf bytes.Buffer
		stats, err := runStream(r.Context(), e, record.NewJSONReader(r.Body), record.NewJSONWriter(&buf))
		if err != nil {
			zap.L().Warn("serve: enrich request failed",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err),
			)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("X-Run-Id", stats.RunID)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	})

	return router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// resolvePort prefers the flag over config.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves handler until ctx is done, then shuts down gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
	})
	return g.Wait()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "provider API key (default geocode.api_key, then credential store)")
	rootCmd.AddCommand(serveCmd)
}
