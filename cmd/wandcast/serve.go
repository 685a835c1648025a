package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ayusman/wandcast/internal/app"
	"github.com/ayusman/wandcast/internal/config"
	"github.com/ayusman/wandcast/internal/notify"
	"github.com/ayusman/wandcast/internal/plugin"
	"github.com/ayusman/wandcast/internal/server"
	"github.com/ayusman/wandcast/internal/server/api"
	"github.com/ayusman/wandcast/internal/store"
	"github.com/ayusman/wandcast/internal/tray"
)

func newServeCmd() *cobra.Command {
	var noTray bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the recognition loop, the HTTP API and the tray",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if noTray {
				cfg.Desktop.Tray = false
			}
			return serve(cfg)
		},
	}
	cmd.Flags().BoolVar(&noTray, "no-tray", false, "run without the system tray")
	return cmd
}

func serve(cfg *config.Config) error {
	log := logrus.WithField("component", "main")

	st, err := store.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	a, err := app.New(*cfg, app.Options{Store: st})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.LoadTemplates(); err != nil {
		log.WithError(err).Warn("Failed to load templates")
	}
	a.StartWarmup()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	plugins := plugin.NewManager(cfg.Plugins.Dir)
	if err := plugins.Discover(); err != nil {
		log.WithError(err).Warn("Plugin discovery failed")
	}
	dispatcher := plugin.NewDispatcher(plugins, plugin.NewExecutor(cfg.Plugins.Timeout), 0)
	a.AddSink(dispatcher)
	go dispatcher.Run(ctx)

	hub := server.NewEventHub()
	a.AddSink(hub)
	a.AddStatusSink(hub)

	notifier := notify.New(cfg.Desktop.Notifications)
	a.AddSink(notifier)
	a.AddStatusSink(notifier)

	errc := make(chan error, 2)
	go func() { errc <- a.Run(ctx) }()

	var httpSrv *http.Server
	if cfg.Server.Enabled {
		srv := server.New(server.Config{
			StaticDir: findWebDir(cfg.DataDir),
			Store:     st,
			Status:    api.StatusFunc(func() any { return a.Snapshot() }),
			Exporter:  a,
			Voice:     a,
			Events:    hub,
		})
		httpSrv = srv.HTTPServer(cfg.Server.Addr)
		go func() {
			log.WithField("addr", cfg.Server.Addr).Info("Starting server")
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}

	if cfg.Desktop.Tray {
		t := tray.New()
		t.OnToggleMode(a.ToggleMode)
		t.OnCycleLabel(a.CycleLabel)
		t.OnOpen(func() { openBrowser("http://" + cfg.Server.Addr) })
		t.OnQuit(cancel)
		a.AddSink(t)
		a.AddStatusSink(t)
		a.OnStatusChange(func(s app.Status) {
			t.Update(tray.State{Mode: s.Mode, Label: s.Label, Warmup: s.Warmup})
		})
		go func() {
			<-ctx.Done()
			t.Quit()
		}()
		// The tray owns the main goroutine until it quits.
		t.Run()
		cancel()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
		cancel()
	}

	if httpSrv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Server shutdown failed")
		}
	}
	notifier.Wait()
	log.Info("Stopped")
	return runErr
}

// findWebDir searches for the dashboard in "web", "../web" and the data
// directory. It returns "" when none exists.
func findWebDir(dataDir string) string {
	candidates := []string{"web", "../web", filepath.Join(dataDir, "web")}
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

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logrus.WithError(err).Warn("Failed to open browser")
	}
}
