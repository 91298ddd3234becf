package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/kagari-social/kagari/client"
	"github.com/kagari-social/kagari/internal/config"
	"github.com/kagari-social/kagari/internal/infra/database"
	"github.com/kagari-social/kagari/internal/infra/repository"
	"github.com/kagari-social/kagari/internal/keyedlock"
	"github.com/kagari-social/kagari/internal/present/rest"
	"github.com/kagari-social/kagari/internal/queue"
	"github.com/kagari-social/kagari/internal/service"
	"github.com/kagari-social/kagari/internal/usecase"
)

func main() {
	configPath := flag.String("config", "/etc/kagari/config.yaml", "path to the config file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	if conf.EnableTrace {
		cleanup, err := setupTracer(ctx, conf.TraceEndpoint)
		if err != nil {
			slog.Error("failed to set up tracing", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer cleanup(ctx)
	}

	db, err := database.NewPostgres(conf.PostgresDsn)
	if err != nil {
		slog.Error("failed to connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := database.MigratePostgres(db); err != nil {
		slog.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rdb := database.NewRedis(conf.RedisAddr, "", conf.RedisDB)
	mc := database.NewMemcached(conf.MemcachedAddr)

	actorRepo := repository.NewActorRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	relationshipRepo := repository.NewRelationshipRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	antennaRepo := repository.NewAntennaRepository(db)
	instanceRepo := repository.NewInstanceRepository(db)
	webhookRepo := repository.NewWebhookRepository(db)

	resolver := client.New(conf.UserAgent)
	gate := service.NewInstanceGate(&conf, instanceRepo)
	directory := usecase.NewActorDirectory(actorRepo, resolver)

	auth := service.NewAuthService(&conf, directory, gate)
	signal := service.NewSignalService(rdb)
	deliver := service.NewDeliverService(&conf, rdb)
	webhooks := service.NewWebhookService(conf.UserAgent)
	search := service.NewSearchService(rdb)

	fanout := usecase.NewFanoutEngine(
		&conf,
		actorRepo,
		noteRepo,
		relationshipRepo,
		notificationRepo,
		antennaRepo,
		instanceRepo,
		webhookRepo,
		deliver,
		webhooks,
		signal,
		search,
	)
	dispatcher := usecase.NewActivityDispatcher(
		directory,
		actorRepo,
		noteRepo,
		relationshipRepo,
		fanout,
		keyedlock.NewRegistry(),
	)
	noteCreate := usecase.NewNoteCreateUsecase(&conf, actorRepo, noteRepo, fanout)

	inbox := queue.NewInboxQueue(rdb, mc, auth, dispatcher, instanceRepo)
	go inbox.Run(ctx)

	handler := rest.NewHandler(&conf, auth, inbox, actorRepo, noteRepo, noteCreate, signal)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if conf.EnableTrace {
		e.Use(otelecho.Middleware(conf.FQDN))
	}
	handler.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(conf.Bind))
}

func setupTracer(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("kagari"),
		)),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
