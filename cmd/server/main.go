package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/flight-seat-booking/internal/booking"
	"github.com/iliyamo/flight-seat-booking/internal/clock"
	"github.com/iliyamo/flight-seat-booking/internal/config"
	"github.com/iliyamo/flight-seat-booking/internal/database"
	"github.com/iliyamo/flight-seat-booking/internal/handler"
	"github.com/iliyamo/flight-seat-booking/internal/queue"
	"github.com/iliyamo/flight-seat-booking/internal/repository"
	"github.com/iliyamo/flight-seat-booking/internal/router"
	queuepublisher "github.com/iliyamo/flight-seat-booking/internal/service"
	"github.com/iliyamo/flight-seat-booking/internal/sweeper"
)

func main() {
	cfg := config.Load() // Load environment config

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}
	if cfg.SeedDemoData {
		if err := database.SeedDemoFlight(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("demo data seeding failed")
		}
	}

	svc := booking.NewService(
		repository.NewTxRunner(db),
		repository.NewFlightRepo(db),
		repository.NewSeatRepo(db),
		repository.NewSeatHoldRepo(db),
		repository.NewBookingRepo(db),
		repository.NewPaymentRepo(db),
		clock.NewSystem(),
		booking.WithHoldTTL(cfg.HoldTTL),
		booking.WithEventPublisher(queuepublisher.New()),
	)

	// Background sweeper releasing lapsed holds on a timer.
	go sweeper.New(svc, cfg.SweepInterval).Run(ctx)

	// Consumer draining booking events into the audit log file.  It
	// reconnects on its own; a broker outage never blocks bookings.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Error().Err(err).Msg("booking event consumer stopped")
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterBooking(e,
		handler.NewFlightHandler(svc),
		handler.NewBookingHandler(svc),
		config.NewRedisClient(),
	)

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
