// Command provision idempotently creates the storage buckets the
// application uploads into. Safe to run repeatedly.
package main

import (
	"context"
	"log"
	"time"

	"glasswing/internal/backend"
	"glasswing/internal/config"
	"glasswing/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	api := backend.New(cfg.BackendURL, cfg.AnonKey, backend.WithTimeout(cfg.HTTPTimeout()))
	files := storage.NewManager(api)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, bucket := range []string{cfg.ImagesBucket, cfg.VideosBucket, cfg.AvatarsBucket} {
		if files.EnsureBucket(ctx, bucket) {
			log.Printf("bucket %q ready", bucket)
		} else {
			log.Printf("bucket %q could not be provisioned", bucket)
		}
	}
}
