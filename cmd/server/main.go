package main // Entry point package

import (
	"context"   // root context cancelled on SIGINT/SIGTERM
	"errors"    // errors matches shutdown sentinels
	"log"       // Logging library
	"net/http"  // http.ErrServerClosed on graceful stop
	"os"        // os.Interrupt
	"os/signal" // signal.NotifyContext
	"sync"      // WaitGroup for background workers
	"syscall"   // SIGTERM
	"time"      // shutdown grace period

	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // request logging and panic recovery

	"github.com/hitman711/parkinglot/internal/cache"      // Redis-backed lot counts
	"github.com/hitman711/parkinglot/internal/clock"      // wall clock for services
	"github.com/hitman711/parkinglot/internal/config"     // Internal config loader
	"github.com/hitman711/parkinglot/internal/database"   // MySQL connection and migrations
	"github.com/hitman711/parkinglot/internal/handler"    // HTTP handlers
	"github.com/hitman711/parkinglot/internal/middleware" // rate limit and response cache
	"github.com/hitman711/parkinglot/internal/queue"      // RabbitMQ publisher and consumer
	"github.com/hitman711/parkinglot/internal/repository" // MySQL repositories
	"github.com/hitman711/parkinglot/internal/router"     // Internal router setup
	"github.com/hitman711/parkinglot/internal/service"    // booking, pricing and sweep logic
	"github.com/hitman711/parkinglot/internal/worker"     // status sweep scheduling
)

func main() {
	cfg := config.Load() // Load environment config
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	rdb := config.NewRedisClient() // nil when Redis is not reachable
	if rdb == nil {
		log.Println("redis unavailable; response cache, rate limit and availability cache disabled")
	} else {
		defer rdb.Close()
	}

	var events service.EventPublisher = queue.Discard{}
	if cfg.Queue.Enabled {
		pub := queue.NewPublisher(cfg.Queue.URL)
		defer pub.Close()
		events = pub
	}

	// Storage layer: every repository joins the transaction carried by ctx.
	txm := repository.NewTxManager(db)
	companies := repository.NewCompanyRepo(db)
	prices := repository.NewPricingRepo(db)
	venues := repository.NewVenueRepo(db)
	reservations := repository.NewReservationRepo(db)
	payments := repository.NewPaymentRepo(db)
	clk := clock.NewSystem()

	catalog := service.NewCatalog(companies, prices, venues)
	tree := service.NewVenueTree(txm, venues, companies, prices)
	avail := service.NewAvailabilityCalculator(tree, reservations, companies, prices)
	if cfg.Availability.Enabled && rdb != nil {
		avail.WithCache(cache.NewCounts(rdb, cfg.Availability.Prefix), cfg.Availability.Bucket)
	}
	scheduler := service.NewReservationScheduler(txm, venues, prices, reservations, payments, events, clk)
	statuses := service.NewStatusMachine(reservations, events, clk, cfg.Sweep.LookbackDays)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Logger())  // one access log line per request
	e.Use(echomw.Recover()) // a panicking handler answers 500

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	respCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Register application routes
	router.RegisterRoutes(e, db)
	router.RegisterPublic(e, handler.NewPublicHandler(avail, clk), limit, respCache)
	router.RegisterOwner(e, handler.NewOwnerHandler(catalog, tree, avail, clk), cfg.JWTSecret, limit)
	router.RegisterOwnerReservations(e, handler.NewOwnerReservationHandler(catalog, scheduler), cfg.JWTSecret, limit)
	router.RegisterCustomer(e, handler.NewCustomerHandler(catalog, scheduler), cfg.JWTSecret, limit)

	var wg sync.WaitGroup  // waits for the sweep and the consumer on shutdown
	if cfg.Sweep.Enabled { // periodic pending/active/overdue transitions
		pool := worker.NewWorkingPool(cfg.Sweep.Workers, cfg.Sweep.QueueSize)
		wg.Add(1)
		go pool.Start(ctx, &wg)

		sweep := worker.NewJobScheduler("status-sweep", cfg.Sweep.Interval, pool, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, cfg.Sweep.Interval)
			defer cancel()
			_, err := statuses.Sweep(ctx)
			return err
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweep.Start(ctx)
		}()
	}
	if cfg.Queue.Enabled && cfg.Queue.ConsumerEnabled { // audit log of reservation events
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := queue.StartEventConsumer(ctx, cfg.Queue.URL, cfg.Queue.LogDir); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("reservation-consumer: stopped: %v", err)
			}
		}()
	}

	go func() {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done() // block until a signal arrives
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	wg.Wait()
}
