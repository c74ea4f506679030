package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/complaintdesk/internal/store"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	if err := store.Migrate(dbURL); err != nil {
		slog.Error("migration failed", "err", err)
		os.Exit(1)
	}

	fmt.Println("migrations complete")
}
