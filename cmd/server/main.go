package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"crm-billing/go_backend/internal/app"
)

func main() {
	// Production reads the real environment only.
	if os.Getenv("ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf(".env not loaded: %v", err)
		}
	}

	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
