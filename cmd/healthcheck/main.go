package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/papershelf/papershelf/internal/config"
	"github.com/papershelf/papershelf/internal/database"
	"github.com/papershelf/papershelf/internal/services"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to relational store: %v", err)
	}
	defer database.Close(db)

	docDB, err := database.ConnectDocuments(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to document store: %v", err)
	}
	defer database.Close(docDB)

	result := services.HealthCheck(cfg, db, docDB)

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal health check result: %v", err)
	}

	fmt.Println(string(output))

	if result.Status != "healthy" {
		os.Exit(1)
	}
	os.Exit(0)
}
