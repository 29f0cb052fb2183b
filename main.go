package main

import (
	"context"
	"log"

	"voicelab/internal/api"
	"voicelab/internal/config"
	"voicelab/review"
	"voicelab/session"
	"voicelab/store"
)

func main() {
	log.Println("VoiceLab backend starting...")

	cfg := config.Load()
	log.Printf("Store: %s (root %s)", cfg.StoreKind, cfg.StoreRoot)

	var st store.Store
	switch cfg.StoreKind {
	case "box":
		if cfg.BoxToken == "" {
			log.Fatal("BOX_DEVELOPER_TOKEN is not set")
		}
		st = store.NewBoxStore(cfg.BoxToken, cfg.StoreRoot)
	case "local":
		local, err := store.NewLocalStore(cfg.StoreRoot)
		if err != nil {
			log.Fatalf("Failed to init local store: %v", err)
		}
		st = local
	default:
		log.Fatalf("Unknown store backend %q", cfg.StoreKind)
	}

	registry, err := store.LoadRegistry(context.Background(), st)
	if err != nil {
		log.Fatalf("Failed to load user registry: %v", err)
	}

	saver := session.NewSaver(st)
	reviewer := review.NewReviewer(cfg.OllamaURL, cfg.OllamaModel)

	server := api.NewServer(cfg, st, registry, saver, reviewer)
	server.Start()
}
