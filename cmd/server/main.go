package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/bookbucks/internal/config"
	"github.com/example/bookbucks/internal/database"
	"github.com/example/bookbucks/internal/routes"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	app := fiber.New(fiber.Config{
		AppName: "BookBucks Backend",
	})

	app.Use(recover.New())
	app.Use(logger.New())

	sessions, err := routes.Register(app, db, cfg)
	if err != nil {
		log.Fatalf("route registration failed: %v", err)
	}

	if err := sessions.Hydrate(context.Background()); err != nil {
		log.Printf("session hydrate failed: %v", err)
	}

	if !cfg.PayoutEnabled {
		log.Printf("payout processor disabled; withdrawals stay pending locally")
	}

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
