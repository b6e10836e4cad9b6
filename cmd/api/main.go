package main

import (
	"context"
	"log"
	"net/http"

	"medtutor/internal/api"
	"medtutor/internal/bootstrap"
	"medtutor/internal/config"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := bootstrap.Open(ctx, cfg, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer rt.Close()
	chats, err := rt.ChatStore()
	if err != nil {
		log.Fatal(err)
	}

	deps := api.Deps{
		Tutor:   rt.Tutor(ctx, chats),
		Chats:   chats,
		Catalog: rt.Catalog,
		Logger:  rt.Logger,
	}
	if runs := rt.IngestRuns(); runs != nil {
		deps.Runs = runs
	}
	tc, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		rt.Logger.Warn("temporal unavailable, ingestion routes disabled", "address", cfg.TemporalAddress, "err", err)
	} else {
		defer tc.Close()
		deps.Temporal = tc
	}

	h := api.NewServer(cfg, deps)
	log.Printf("medtutor api listening on %s chat_store=%s vector_store=%s llm_providers=%q", cfg.APIAddr, cfg.ChatStore, cfg.VectorStore, cfg.LLMProviders)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		log.Fatal(err)
	}
}
