package main

import (
	"context"
	"log"

	"medtutor/internal/activities"
	"medtutor/internal/bootstrap"
	"medtutor/internal/config"
	"medtutor/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	rt, err := bootstrap.Open(context.Background(), cfg, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer rt.Close()

	var runs activities.RunStore
	if r := rt.IngestRuns(); r != nil {
		runs = r
	}

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(cfg, rt.Catalog, rt.Content, runs, rt.Logger))

	log.Printf("medtutor worker listening on %s queue=%s vector_store=%s embed_providers=%q", cfg.TemporalAddress, cfg.TemporalTaskQueue, cfg.VectorStore, cfg.EmbedProviders)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal(err)
	}
}
