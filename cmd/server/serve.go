package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bethelevents/assessor/internal/api"
)

func newServeCmd(cfgFile func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfgFile(), os.Stderr)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.close(); err != nil {
					slog.Warn("shutdown cleanup failed", "error", err)
				}
			}()
			return serve(ctx, a)
		},
	}
}

// buildInfo reports the linker-stamped build, overridable through
// ASSESSOR_COMMIT and ASSESSOR_BUILD_TIME.
func buildInfo(v *viper.Viper) api.BuildInfo {
	info := api.BuildInfo{Commit: commit, BuildTime: buildTime}
	if v == nil {
		return info
	}
	if c := v.GetString("commit"); c != "" {
		info.Commit = c
	}
	if bt := v.GetString("build_time"); bt != "" {
		info.BuildTime = bt
	}
	return info
}

func serve(ctx context.Context, a *app) error {
	rt := api.NewRouter(a.forms, a.responses, a.auth, buildInfo(a.viper))
	mux := http.NewServeMux()
	rt.Register(mux)
	mountFrontend(mux, a.cfg.Server.StaticDir, os.Getenv("ASSESSOR_DEV_FRONTEND_URL"))

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           rt.Handler(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("assessor listening", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	slog.Info("shutting down", "timeout", timeout)
	return srv.Shutdown(shutdownCtx)
}

// mountFrontend serves the questionnaire client. A static directory wins over
// a dev proxy; with neither set only the API is served.
func mountFrontend(mux *http.ServeMux, staticDir, devURL string) {
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
		return
	}
	if devURL == "" {
		return
	}
	u, err := url.Parse(devURL)
	if err != nil {
		slog.Warn("invalid dev frontend url", "url", devURL, "error", err)
		return
	}
	rp := httputil.NewSingleHostReverseProxy(u)
	rp.ModifyResponse = func(res *http.Response) error {
		res.Header.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		res.Header.Set("Pragma", "no-cache")
		res.Header.Set("Expires", "0")
		return nil
	}
	mux.Handle("/", rp)
}
