package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/irplan/internal/app"
	"github.com/ayusman/irplan/internal/config"
	"github.com/ayusman/irplan/internal/server"
	"github.com/ayusman/irplan/internal/tray"
)

func newServeCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pointer service, HTTP API and device link",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := openStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	hub := server.NewHub()
	a, err := app.New(app.Config{Settings: cfg, Store: st})
	if err != nil {
		return err
	}
	a.AddPublisher(hub)

	srvCfg := server.Config{
		StaticDir: cfg.Server.StaticDir,
		Store:     st,
		Pointer:   a,
		Hub:       hub,
	}
	if srvCfg.StaticDir == "" {
		srvCfg.StaticDir = findWebDir()
	}
	if cfg.Link.Mode == config.LinkCamera {
		srvCfg.Frames = a
	}
	httpSrv := server.New(srvCfg).HTTPServer(cfg.Server.Addr)

	if err := a.Start(); err != nil {
		return err
	}
	defer a.Stop()

	log.Printf("Starting server on %s", cfg.Server.Addr)
	errCh := runHTTP(httpSrv, cancel)

	if cfg.Tray.Enabled {
		runTray(ctx, cancel, a, cfg.Server.Addr)
	} else {
		<-ctx.Done()
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// runHTTP serves srv in the background. A failure other than a shutdown is
// logged, cancels the serve context and is sent on the returned channel,
// which is closed when the server returns.
func runHTTP(srv *http.Server, cancel context.CancelFunc) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
			errCh <- err
			cancel()
		}
	}()
	return errCh
}

// runTray shows the tray menu on the calling goroutine until the user quits
// or ctx is done.
func runTray(ctx context.Context, cancel context.CancelFunc, a *app.App, addr string) {
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnQuit(cancel)
	t.OnSettings(func() {
		log.Printf("Dashboard: http://localhost%s", addr)
	})
	a.AddPublisher(t)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

// findWebDir returns the first existing web directory among "web",
// "../web" and the data directory's web folder, or "" if none exists.
func findWebDir() string {
	candidates := []string{"web", filepath.Join("..", "web"), filepath.Join(config.DataDir(), "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
