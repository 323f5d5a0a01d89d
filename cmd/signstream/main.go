package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayusman/signstream/internal/config"
	"github.com/ayusman/signstream/internal/infer"
	"github.com/ayusman/signstream/internal/pipeline"
	"github.com/ayusman/signstream/internal/prediction"
	"github.com/ayusman/signstream/internal/schema"
	"github.com/ayusman/signstream/internal/server"
	"github.com/ayusman/signstream/internal/store"
)

func main() {
	fmt.Println("Signstream - Sign Language Translation Backend")

	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env file")
	}

	cfg := config.FromEnv()

	// Initialize persistence. The default location lives under the home
	// directory; an unavailable home runs without persistence.
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath()
	}

	var st *store.Store
	var historyLog prediction.HistoryLog
	if dbPath != "" {
		var err error
		st, err = store.New(dbPath)
		if err != nil {
			log.Fatalf("Failed to initialize store: %v", err)
		}
		defer st.Close()
		historyLog = st.History()

		// Thresholds tuned through the settings API override the
		// environment on restart.
		stored, err := st.Settings().All()
		if err != nil {
			log.Printf("Failed to load stored settings: %v", err)
		} else if len(stored) > 0 {
			cfg = config.ApplyStored(cfg, stored)
			log.Printf("Applied %d stored settings", len(stored))
		}
	}

	// Load the column schema. A malformed schema produces systematically
	// wrong features, so this aborts startup rather than degrading.
	var s *schema.Schema
	if cfg.SchemaPath != "" {
		var err error
		s, err = schema.Load(cfg.SchemaPath)
		if err != nil {
			log.Fatalf("Failed to load column schema: %v", err)
		}
		log.Printf("Loaded column schema with %d columns", s.Len())
	} else {
		s = schema.HandSchema()
		log.Println("Using builtin hand schema")
	}

	client := infer.NewClient(cfg.InferURL, cfg.InferTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := client.Health(ctx); err != nil {
		log.Printf("Inference service not reachable at %s: %v", cfg.InferURL, err)
	} else {
		log.Printf("Inference service healthy at %s", cfg.InferURL)
	}
	cancel()

	predictions := prediction.NewStore(prediction.DefaultHistoryCapacity, historyLog)
	pipe, err := pipeline.New(cfg.Pipeline, s, client, predictions)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	srv := server.New(server.Config{
		StaticDir:   cfg.StaticDir,
		Store:       st,
		Predictions: predictions,
		Pipeline:    pipe,
	})

	fmt.Printf("Starting server on %s\n", cfg.Addr)
	if err := srv.ListenAndServe(cfg.Addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// defaultDBPath returns ~/.signstream/signstream.db, creating the
// directory if needed. Returns empty string when the home directory is
// unavailable, which disables persistence.
func defaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Printf("No home directory, running without persistence: %v", err)
		return ""
	}

	dbDir := filepath.Join(homeDir, ".signstream")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Printf("Failed to create data directory, running without persistence: %v", err)
		return ""
	}

	return filepath.Join(dbDir, "signstream.db")
}
