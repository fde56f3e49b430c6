package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grocery-dispatch/internal/api"
	"grocery-dispatch/internal/config"
	"grocery-dispatch/internal/modules/completion"
	"grocery-dispatch/internal/modules/dispatch"
	"grocery-dispatch/internal/modules/fleet"
	"grocery-dispatch/internal/modules/routing"
	"grocery-dispatch/pkg/email"
	"grocery-dispatch/pkg/maps"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	// 1. --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	e := echo.New()

	// 2. --- Middleware ---
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:5173", cfg.ClientOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// 3. --- Database Connection ---
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to parse database configuration: %v", err)
	}

	dbPool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		log.Fatalf("Unable to create connection pool: %v", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	e.Logger.Info("Successfully connected to the database!")

	// 4. --- External collaborators ---
	var mailer email.ServiceInterface
	if sender, err := email.NewSESV2Sender(context.Background(), cfg.AWSRegion, cfg.EmailFrom); err != nil {
		log.Printf("Email sender unavailable, notifications disabled: %v", err)
	} else {
		mailer = sender
	}
	routeProvider := maps.NewClient(cfg.GoogleMapsAPIKey)

	// 5. --- Dependency Injection (Wiring everything up) ---
	// --- Routing Module ---
	routingRepo := routing.NewRepository(dbPool)
	routingService := routing.NewService(routingRepo, routeProvider, cfg.DepotAddress)
	routingHandler := routing.NewHandler(routingService)

	// --- Completion Module ---
	completionRepo := completion.NewRepository(dbPool)
	completionService := completion.NewService(completionRepo, mailer)
	scheduler := completion.NewScheduler(completionService.ReconcileOnTimer)
	completionHandler := completion.NewHandler(completionService)

	// --- Dispatch Module ---
	dispatchRepo := dispatch.NewRepository(dbPool, cfg.FleetCapacityLbs)
	planner := dispatch.NewPlanner()
	dispatchService := dispatch.NewService(dispatchRepo, planner, routingService,
		scheduler, mailer, cfg.CompletionDelayScale, cfg.CompletionMinDelay)
	dispatchHandler := dispatch.NewHandler(dispatchService)

	// --- Fleet Module ---
	fleetRepo := fleet.NewRepository(dbPool, cfg.FleetCapacityLbs)
	fleetService := fleet.NewService(fleetRepo, scheduler)
	fleetHandler := fleet.NewHandler(fleetService)

	// 6. --- Initialize Router ---
	api.SetupRoutes(e, cfg.JWTSecret,
		dispatchHandler,
		routingHandler,
		completionHandler,
		fleetHandler,
	)

	// 7. --- Start Server with graceful shutdown logic ---
	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server an error occurred:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal("Server forced to shutdown:", err)
	}
	log.Println("Server exiting")
}
