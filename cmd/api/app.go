package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"coffeeshop/pkg/config"
	"coffeeshop/pkg/events"
	"coffeeshop/pkg/events/amqp"
	"coffeeshop/pkg/events/kafka"
	"coffeeshop/pkg/logger"
	"coffeeshop/pkg/order"
	"coffeeshop/pkg/order/cache"
	"coffeeshop/pkg/order/memory"
	pg "coffeeshop/pkg/order/postgres"
	"coffeeshop/pkg/otel"
	"coffeeshop/pkg/web"
)

// app holds everything built from the config. close releases it in
// reverse order of construction.
type app struct {
	cfg     config.Config
	log     *logger.Logger
	repo    order.Repository
	checks  map[string]web.HealthCheck
	closers []func() error
}

// loadConfig reads the config and builds the logger writing to w.
func loadConfig(path string, w io.Writer) (config.Config, *logger.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger.New(w, level, cfg.ServiceName, otel.GetTraceID), nil
}

// openDatabase connects to the configured SQL database.
var openDatabase = pg.Open

// newBareApp returns an app with nothing opened yet.
func newBareApp(cfg config.Config, log *logger.Logger) *app {
	return &app{cfg: cfg, log: log, checks: make(map[string]web.HealthCheck)}
}

func newApp(ctx context.Context, cfg config.Config, log *logger.Logger) (*app, error) {
	a := newBareApp(cfg, log)
	if err := a.openStore(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	if a.cfg.Database.Driver == "memory" {
		a.log.Warn(ctx, "using in-memory order store, orders are lost on restart")
		a.repo = memory.New()
	} else {
		db, err := a.openDB(ctx)
		if err != nil {
			return err
		}
		if a.cfg.Database.AutoMigrate {
			applied, err := pg.Migrate(ctx, db)
			if err != nil {
				return err
			}
			a.log.Info(ctx, "migrations applied", "count", len(applied))
		}
		a.repo = pg.New(db)
	}

	if a.cfg.Redis.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: a.cfg.Redis.Addr})
	a.closers = append(a.closers, rdb.Close)
	if err := cache.Ping(ctx, rdb); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	a.checks["redis"] = func(ctx context.Context) error { return cache.Ping(ctx, rdb) }
	a.repo = cache.New(a.repo, rdb, a.cfg.Redis.TTL)
	a.log.Info(ctx, "order cache enabled", "addr", a.cfg.Redis.Addr, "ttl", a.cfg.Redis.TTL.String())
	return nil
}

func (a *app) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := openDatabase(ctx, a.cfg.Database.Driver, a.cfg.Database.URL, pg.Options{
		MaxOpenConns:   a.cfg.Database.MaxOpenConns,
		ConnectRetries: a.cfg.Database.ConnectRetries,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	a.checks["database"] = db.PingContext
	a.log.Info(ctx, "database connected", "driver", a.cfg.Database.Driver)
	return db, nil
}

// publisher builds the configured event publisher. The returned stop
// function flushes queued events.
func (a *app) publisher(ctx context.Context) (events.Publisher, func(), error) {
	switch a.cfg.Events.Driver {
	case "kafka":
		p := kafka.NewProducer(kafka.NewWriter(a.cfg.Events.Brokers, a.cfg.Events.Topic), a.log, 256)
		p.Start(context.WithoutCancel(ctx))
		a.log.Info(ctx, "publishing events", "driver", "kafka", "topic", a.cfg.Events.Topic)
		return p, func() { p.Close(); p.WaitClosed() }, nil

	case "amqp":
		conn, err := amqp.Dial(ctx, a.log, a.cfg.Events.AMQPURL, a.cfg.Events.Exchange, a.cfg.Database.ConnectRetries)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, conn.Close)
		p := amqp.NewPublisher(conn.Channel(), a.cfg.Events.Exchange, a.log)
		a.log.Info(ctx, "publishing events", "driver", "amqp", "exchange", a.cfg.Events.Exchange)
		return p, p.Wait, nil

	default:
		return events.Nop{}, func() {}, nil
	}
}

func (a *app) close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Error(context.Background(), "shutdown", "error", err)
	}
	_ = a.log.Sync()
}

func writeString(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}
