package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/niksmo/chatshop/config"
	"github.com/niksmo/chatshop/internal/adapter"
	"github.com/niksmo/chatshop/internal/adapter/httphandler"
	"github.com/niksmo/chatshop/internal/adapter/kafka"
	"github.com/niksmo/chatshop/internal/adapter/redis"
	"github.com/niksmo/chatshop/internal/adapter/storage"
	"github.com/niksmo/chatshop/internal/core/port"
	"github.com/niksmo/chatshop/internal/core/service"
	"github.com/niksmo/chatshop/pkg/schema"
	goredis "github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/sr"
)

type outbound struct {
	db          storage.SQLDB
	records     port.RecordStore
	redisClient *goredis.Client
	sessions    port.SessionStore
	notifier    port.Notifier
	kafka       *kafka.Notifier
}

type App struct {
	ctx        context.Context
	cfg        config.Config
	out        outbound
	service    service.Service
	httpServer httphandler.HTTPServer
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initRecordStore()
	app.initSessionStore()
	app.initNotifier()
	app.initCoreService()
	app.initInboundAdapters()

	return app
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initRecordStore() {
	const op = "App.initRecordStore"

	db, err := storage.NewSQLDB(app.ctx, app.cfg.SQLDB)
	if err != nil {
		app.fallDown(op, err)
	}

	app.out.db = db
	app.out.records = storage.NewRetryingStore(
		storage.NewStore(db),
		storage.MaxAttemptsOpt(app.cfg.Retry.MaxAttempts),
		storage.BaseDelayOpt(app.cfg.Retry.BaseDelay),
	)
}

func (app *App) initSessionStore() {
	const op = "App.initSessionStore"
	cfg := app.cfg.Redis

	tlsCfg, err := adapter.MakeTLSConfig(cfg.TLS.CA, cfg.TLS.Cert, cfg.TLS.Key)
	if err != nil {
		app.fallDown(op, err)
	}

	client, err := redis.NewClient(app.ctx, redis.ClientConfig{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		TLS:      tlsCfg,
	})
	if err != nil {
		app.fallDown(op, err)
	}

	app.out.redisClient = client
	app.out.sessions = redis.NewSessionStore(client, cfg.SessionTTL)
}

// initNotifier falls back to the log when no brokers are configured.
func (app *App) initNotifier() {
	const op = "App.initNotifier"
	cfg := app.cfg.Broker

	if len(cfg.SeedBrokers) == 0 {
		slog.Warn("no seed brokers, notifications go to the log", "op", op)
		app.out.notifier = kafka.LogNotifier{}
		return
	}

	srClient, err := sr.NewClient(sr.URLs(cfg.SchemaRegistryURLs...))
	if err != nil {
		app.fallDown(op, err)
	}

	serde, err := schema.NewSerdeNotificationV1(
		app.ctx,
		schema.SubjectOpt(cfg.Topics.Notifications+"-value"),
		schema.SchemaIdentifierOpt(schema.NewSchemaCreater(srClient)),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	tlsCfg, err := adapter.MakeTLSConfig(cfg.TLS.CA, cfg.TLS.Cert, cfg.TLS.Key)
	if err != nil {
		app.fallDown(op, err)
	}

	notifier, err := kafka.NewNotifier(
		kafka.ProducerClientOpt(app.ctx, kafka.ClientConfig{
			SeedBrokers: cfg.SeedBrokers,
			Topic:       cfg.Topics.Notifications,
			TLS:         tlsCfg,
			User:        cfg.User,
			Pass:        cfg.Pass,
		}),
		kafka.ProducerEncoderOpt(serde),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.out.kafka = notifier
	app.out.notifier = notifier
}

func (app *App) initCoreService() {
	cfg := app.cfg
	app.service = service.New(
		service.Deps{
			Records:  app.out.records,
			Sessions: app.out.sessions,
			Notifier: app.out.notifier,
			Clock:    service.SystemClock{},
		},
		service.Config{
			CatalogTTL:        cfg.Catalog.TTL,
			LowStockThreshold: cfg.Checkout.LowStockThreshold,
			CommitAttempts:    cfg.Checkout.CommitAttempts,
			ReminderInterval:  cfg.Reminder.Interval,
			Checkout: service.CheckoutConfig{
				SkipToken:           cfg.Checkout.SkipToken,
				CancelToken:         cfg.Checkout.CancelToken,
				MaxDiscountAttempts: cfg.Checkout.MaxDiscountAttempts,
				SessionTTL:          cfg.Redis.SessionTTL,
				Promo:               cfg.Checkout.PromoMessage,
			},
		},
	)
}

func (app *App) initInboundAdapters() {
	mux := http.NewServeMux()
	httphandler.RegisterCatalog(mux, app.service.Catalog)
	httphandler.RegisterCart(mux, app.service.Cart)
	httphandler.RegisterCheckout(mux, app.service.Checkout)

	app.httpServer = httphandler.NewHTTPServer(
		app.cfg.HTTPServerAddr, mux, app.cfg.HTTPTimeout,
	)
}

func (app *App) Run(stopFn context.CancelFunc) {
	app.service.Run(app.ctx)
	go app.httpServer.Run(stopFn)

	slog.Info("application is running")
}

// Close expects the context passed to New to be done.
func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)
	app.service.Close()
	if app.out.kafka != nil {
		app.out.kafka.Close()
	}
	if err := app.out.redisClient.Close(); err != nil {
		slog.Error("failed to close redis client", "err", err)
	}
	app.out.db.Close()

	slog.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
