package main

import (
	"database/sql"
	"log"

	"voteticker/internal/config"
	"voteticker/internal/database"

	_ "github.com/lib/pq"
)

// Standalone migration runner for deployments that migrate separately from
// serving traffic.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Preflight over database/sql so a bad DSN or unreachable host fails
	// before gorm starts touching the schema
	sqlDB, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		log.Fatalf("Failed to close preflight connection: %v", err)
	}
	log.Println("Database reachable, running migrations")

	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed")
}
