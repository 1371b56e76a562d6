package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/observability"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/treeio"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/uast/pkg/node"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/version"
)

// shutdownGrace bounds graceful shutdown of the HTTP server.
const shutdownGrace = 10 * time.Second

// MatchRequest is the body of POST /api/match. Matcher fields left out keep
// the server's configured values.
type MatchRequest struct {
	Src     *node.Node      `json:"src"`
	Dst     *node.Node      `json:"dst"`
	Matcher matchers.Config `json:"matcher"`
	Eager   bool            `json:"eager,omitempty"`
	Pairs   bool            `json:"pairs,omitempty"`
	Actions *bool           `json:"actions,omitempty"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// matchServer serves the HTTP API.
type matchServer struct {
	matcher   matchers.Config
	maxBody   int64
	providers observability.Providers
	logger    *slog.Logger
	metrics   http.Handler
}

func serverCmd(a *app) *cobra.Command {
	var (
		mf   matcherFlags
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve matching over HTTP",
		Long: `Start an HTTP server with the matching API.

Endpoints:
  POST /api/match   match two trees, body {"src": <uast>, "dst": <uast>}
  GET  /metrics     Prometheus metrics
  GET  /healthz     liveness
  GET  /readyz      readiness
  GET  /version     build metadata`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mc, err := mf.apply(cmd.Flags(), a.cfg)
			if err != nil {
				return err
			}

			maxBody, err := a.cfg.Server.MaxBodyBytes()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}

			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}

			srv := &matchServer{
				matcher:   mc,
				maxBody:   maxBody,
				providers: a.providers,
				logger:    a.logger,
				metrics:   a.metricsHandler,
			}

			return a.serve(cmd.Context(), srv.routes())
		},
	}

	mf.bind(cmd.Flags())
	cmd.Flags().StringVar(&host, "host", "", "listen host (default: server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default: server.port)")

	return cmd
}

func (a *app) serve(ctx context.Context, handler http.Handler) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfoContext(gctx, "hyperdiff server starting", "addr", server.Addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownGrace)
		defer cancel()

		a.logger.InfoContext(shutdownCtx, "hyperdiff server stopping")

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}

		return nil
	})

	return g.Wait()
}

func (s *matchServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/match", s.handleMatch)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.Handle("GET /healthz", observability.HealthHandler())
	mux.Handle("GET /readyz", observability.ReadyHandler())

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	tracer := s.providers.Tracer
	if tracer == nil {
		return mux
	}

	return observability.HTTPMiddleware(tracer, s.providers.RED, mux)
}

func (s *matchServer) handleMatch(rw http.ResponseWriter, hr *http.Request) {
	ctx := hr.Context()
	req := MatchRequest{Matcher: s.matcher}

	dec := json.NewDecoder(http.MaxBytesReader(rw, hr.Body, s.maxBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		status := http.StatusBadRequest

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}

		s.writeError(ctx, rw, status, fmt.Errorf("decode request: %w", err))

		return
	}

	if req.Src == nil || req.Dst == nil || req.Src.Type == "" || req.Dst.Type == "" {
		s.writeError(ctx, rw, http.StatusBadRequest, errors.New("src and dst trees are required"))

		return
	}

	if err := validRequestTree(req.Src); err != nil {
		s.writeError(ctx, rw, http.StatusBadRequest, fmt.Errorf("src: %w", err))

		return
	}

	if err := validRequestTree(req.Dst); err != nil {
		s.writeError(ctx, rw, http.StatusBadRequest, fmt.Errorf("dst: %w", err))

		return
	}

	if err := req.Matcher.Validate(); err != nil {
		s.writeError(ctx, rw, http.StatusBadRequest, err)

		return
	}

	report, err := runTrees(ctx, runRequest{
		src:         req.Src,
		dst:         req.Dst,
		matcher:     req.Matcher,
		eager:       req.Eager,
		withPairs:   req.Pairs,
		withActions: req.Actions == nil || *req.Actions,
		providers:   s.providers,
	})
	if err != nil {
		s.writeError(ctx, rw, http.StatusInternalServerError, err)

		return
	}

	writeJSON(ctx, rw, http.StatusOK, report)
}

// validRequestTree applies the schema check tree files go through.
func validRequestTree(tree *node.Node) error {
	doc, err := treeio.FromTree(tree)
	if err != nil {
		return err
	}

	_, err = doc.ValidTree()

	return err
}

func (s *matchServer) handleVersion(rw http.ResponseWriter, hr *http.Request) {
	writeJSON(hr.Context(), rw, http.StatusOK, map[string]string{
		"version": version.Version,
		"commit":  version.Commit,
		"date":    version.Date,
	})
}

func (s *matchServer) writeError(ctx context.Context, rw http.ResponseWriter, status int, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	writeJSON(ctx, rw, status, ErrorResponse{Error: err.Error()})
}

// writeJSON encodes the given value as JSON and writes it to the response writer.
func writeJSON(ctx context.Context, rw http.ResponseWriter, status int, value any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	if err := json.NewEncoder(rw).Encode(value); err != nil {
		slog.Default().ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}
