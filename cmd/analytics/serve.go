package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trading-analyticsv1/config"
	"trading-analyticsv1/internal/gateway"
	"trading-analyticsv1/internal/logger"
	"trading-analyticsv1/internal/notification"
	"trading-analyticsv1/internal/scheduler"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/websocket report gateway and the warm-up scheduler",
		Long: `Serve exposes:
  GET /report/{symbol}         composite markdown report
  GET /analysis/{symbol}       every view's analysis as JSON
  GET /view/{view}/{symbol}    one view's markdown section
  GET /ws?symbol=...           websocket stream of reports
  GET /metrics, /healthz

Symbols in watch_symbols are refreshed on warm_cron and, with publish
enabled, pushed to Redis (report:{symbol}).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.HTTPAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c.cfgPath, c.cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http_addr)")
	return cmd
}

func serve(ctx context.Context, cfgPath string, cfg *config.Config) error {
	st, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	hub := gateway.NewHub(st.agg, gateway.HubOptions{
		Interval: cfg.WSPushInterval,
		Recorder: st.metrics,
	})
	go hub.Run(ctx)

	// With publishing on, reports flow scheduler → Redis → every gateway's
	// hub; otherwise the scheduler feeds this hub directly.
	var sinks []scheduler.Sink
	if pub := st.publisher(); pub != nil {
		sinks = append(sinks, pub)
		go gateway.NewPubSubRouter(hub, st.rdb).Run(ctx)
	} else {
		sinks = append(sinks, scheduler.SinkFunc(func(_ context.Context, symbol, report string) error {
			hub.Broadcast(symbol, report)
			return nil
		}))
	}

	if cfg.WebhookURL != "" {
		sinks = append(sinks, notification.NewWebhook(cfg.WebhookURL))
	}
	if cfg.TelegramToken != "" {
		sinks = append(sinks, notification.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID))
	}

	sched := scheduler.New(ctx, st.agg, cfg.WatchSymbols, sinks...)
	if err := sched.Register(cfg.WarmCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()
	if len(cfg.WatchSymbols) > 0 {
		go sched.RunNow()
	}

	st.health.StartLivenessChecker(ctx, 15*time.Second)

	if cfgPath != "" {
		go func() {
			err := config.Watch(ctx, cfgPath, func(next *config.Config) {
				logger.SetLevel(logger.ParseLevel(next.LogLevel))
				sched.SetSymbols(next.WatchSymbols)
			})
			if err != nil {
				slog.Warn("config hot reload disabled", "component", "main", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: gateway.NewRouter(gateway.Deps{
			Reports:    st.agg,
			Views:      st.views,
			Hub:        hub,
			Metrics:    st.metrics.Handler(),
			Health:     st.health,
			TOTPSecret: cfg.TOTPSecret,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving", "component", "main", "addr", cfg.HTTPAddr, "totp", cfg.TOTPSecret != "")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down", "component", "main")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
