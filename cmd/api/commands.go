package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "coffeeshop/docs"
	"coffeeshop/pkg/console"
	"coffeeshop/pkg/order"
	pg "coffeeshop/pkg/order/postgres"
	"coffeeshop/pkg/otel"
	"coffeeshop/pkg/web"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *configPath)
		},
	}
}

func serve(ctx context.Context, configPath string) error {
	cfg, log, err := loadConfig(configPath, os.Stdout)
	if err != nil {
		return err
	}

	otelCfg := otel.Config{ServiceName: cfg.ServiceName, Host: cfg.Tracing.Host, Probability: cfg.Tracing.Probability}
	if cfg.Tracing.Stdout {
		otelCfg.Writer = os.Stderr
	}
	tp, shutdown, err := otel.InitTracing(log, otelCfg)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdown(context.Background())

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	menu, err := cfg.Catalog()
	if err != nil {
		return err
	}
	pub, flush, err := a.publisher(ctx)
	if err != nil {
		return err
	}
	defer flush()

	svc := order.NewService(a.repo, menu, order.WithPublisher(pub, cfg.ServiceName))

	opts := []web.Option{
		web.WithTracer(tp.Tracer(cfg.ServiceName)),
		web.WithTimeout(cfg.HTTP.StoreTimeout),
	}
	for name, check := range a.checks {
		opts = append(opts, web.WithHealthCheck(name, check))
	}
	h, err := web.New(svc, log, opts...)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: cfg.HTTP.StoreTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.HTTP.Addr, "tls", cfg.HTTP.TLSCertFile != "")
		if cfg.HTTP.TLSCertFile != "" {
			errCh <- srv.ListenAndServeTLS(cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "server closed", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown", "error", err)
		return err
	}
	return nil
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.Database.Driver == "memory" {
				return errors.New("migrate needs a postgres or pgx database driver")
			}
			a := newBareApp(cfg, log)
			defer a.close()

			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			applied, err := pg.Migrate(ctx, db)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				return writeString(cmd.OutOrStdout(), "database is up to date\n")
			}
			for _, name := range applied {
				if err := writeString(cmd.OutOrStdout(), "applied "+name+"\n"); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newMenuCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Print the menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			menu, err := cfg.Catalog()
			if err != nil {
				return err
			}
			return writeString(cmd.OutOrStdout(), console.RenderMenu(menu.List()))
		},
	}
}

func newOrdersCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "Print all stored orders with totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			orders, err := a.repo.List(ctx)
			if err != nil {
				return err
			}
			return writeString(cmd.OutOrStdout(), console.RenderOrders(orders))
		},
	}
}
