package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/database"
	"github.com/iliyamo/event-ticketing/internal/events"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/mail"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/router"
	"github.com/iliyamo/event-ticketing/internal/service"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb := config.NewRedisClient()
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()

	var publisher events.Publisher = events.Discard{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, 1024)
		producer.Start(ctx)
		publisher = producer
	} else {
		log.Printf("kafka: KAFKA_BROKERS not set, order events disabled")
	}

	consumer := &queue.EmailConsumer{URL: cfg.RabbitMQURL, Sender: mail.NewSender(cfg.Mail)}
	go consumer.Run(ctx)
	emails := service.NewEmailPublisher(cfg.RabbitMQURL)

	admins := repository.NewAdminRepo(db)
	affiliates := repository.NewAffiliateRepo(db)
	commissions := repository.NewCommissionRepo(db)
	orders := repository.NewOrderRepo(db)
	newsletter := repository.NewNewsletterRepo(db)

	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = handler.JSONSerializer{}
	e.IPExtractor = echo.ExtractIPFromXFFHeader()
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				log.Printf("%s %s %d %s rid=%s err=%v", v.Method, v.URI, v.Status, v.Latency, v.RequestID, v.Error)
				return nil
			}
			log.Printf("%s %s %d %s rid=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))

	auth := handler.NewAuthHandler(cfg, admins, affiliates)
	limit := middleware.NewTokenBucket(rlCfg, rdb)

	router.RegisterPublic(e, db, &handler.PublicHandler{
		Catalog:    repository.NewTicketTypeRepo(db),
		Orders:     orders,
		Newsletter: newsletter,
		Events:     publisher,
		PurgeCatalog: func(ctx context.Context) error {
			return middleware.PurgeCache(ctx, rdb, cacheCfg.Prefix)
		},
	}, middleware.NewRedisCache(cacheCfg, rdb))

	router.RegisterAdmin(e, cfg, auth, &handler.AdminHandler{
		Cfg:         cfg,
		Orders:      orders,
		Affiliates:  affiliates,
		Commissions: commissions,
		Newsletter:  newsletter,
		Emails:      emails,
		Events:      publisher,
	}, func(ctx context.Context, id uint64) error {
		_, err := admins.GetByID(ctx, id)
		return err
	}, limit, repository.ErrNotFound)

	router.RegisterAffiliate(e, cfg, auth, &handler.AffiliateHandler{
		Cfg:         cfg,
		Affiliates:  affiliates,
		Commissions: commissions,
	}, func(ctx context.Context, id uint64) error {
		a, err := affiliates.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !a.IsActive {
			return fmt.Errorf("affiliate %d: %w", id, middleware.ErrPrincipalInactive)
		}
		return nil
	}, limit, repository.ErrNotFound)

	go func() {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if producer != nil {
		producer.WaitClosed()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
