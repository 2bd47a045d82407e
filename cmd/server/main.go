package main

import (
	"log"
	"net/http"

	"route_mapper/internal/config"
	"route_mapper/internal/logger"
	"route_mapper/internal/middleware"
	"route_mapper/internal/repository"
	"route_mapper/internal/routes"
	"route_mapper/internal/storage"
)

func main() {
	cfg := config.Load()

	// Structured logging to a rotating file
	logger.Setup(cfg.LogFile)

	// Connect to the database and migrate
	config.InitDB()

	store, err := storage.New(cfg.MediaRoot)
	if err != nil {
		log.Fatalf("failed to init media storage: %v", err)
	}

	if cfg.AuthEnabled {
		repo := repository.New(config.DB, store, cfg.Limits)
		if err := repo.EnsureAdmin(cfg.AdminEmail, cfg.AdminPasswordHash); err != nil {
			log.Fatalf("failed to seed admin account: %v", err)
		}
	}

	r := routes.SetupRouter(cfg, config.DB, store)

	// Wrap with CORS
	handler := middleware.EnableCORS(r)

	log.Printf("🚀 Server running at %s", cfg.ServerAddr)
	log.Fatal(http.ListenAndServe(cfg.ServerAddr, handler))
}
