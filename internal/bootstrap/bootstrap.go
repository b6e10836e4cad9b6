// Package bootstrap assembles the shared runtime from configuration for the
// api, worker and ingest binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"medtutor/internal/config"
	"medtutor/internal/content"
	"medtutor/internal/embedding"
	"medtutor/internal/providers"
	"medtutor/internal/resolver"
	"medtutor/internal/session"
	"medtutor/internal/storage"
	"medtutor/internal/storage/sqlite"
	"medtutor/internal/synth"
	"medtutor/internal/topics"
	"medtutor/internal/tutor"
	"medtutor/internal/vector"
)

type Runtime struct {
	Config    config.Config
	Logger    *slog.Logger
	Catalog   *topics.Catalog
	Providers *providers.Manager
	DB        *storage.DB
	Index     vector.Index
	Content   *content.Store

	closers []func()
}

// Open connects Postgres only when the chat store or vector index needs it.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = cfg.NewLogger()
	}
	catalog, err := topics.LoadCatalog(cfg.TopicsFile)
	if err != nil {
		return nil, err
	}
	pm, err := providers.NewManager(cfg, catalog.Labels())
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, Logger: logger, Catalog: catalog, Providers: pm}

	if cfg.ChatStore == "postgres" || cfg.VectorStore == "pgvector" {
		db, err := storage.NewDB(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		rt.DB = db
		rt.closers = append(rt.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			rt.Close()
			return nil, err
		}
	}

	switch cfg.VectorStore {
	case "qdrant":
		rt.Index = vector.NewQdrantIndex(vector.QdrantConfig{URL: cfg.QdrantURL, APIKey: cfg.QdrantAPIKey, Collection: cfg.Collection})
	case "pgvector":
		rt.Index = vector.NewPGIndex(rt.DB.Pool, cfg.Collection)
	case "memory":
		rt.Index = vector.NewMemoryIndex()
	default:
		rt.Close()
		return nil, fmt.Errorf("unknown vector store %q", cfg.VectorStore)
	}
	if err := rt.Index.EnsureCollection(ctx, cfg.EmbedDim); err != nil {
		rt.Close()
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	gw := embedding.NewGateway(pm.EmbedProviders(), embedding.Options{Dimension: cfg.EmbedDim, RPS: cfg.EmbedRPS, Logger: logger})
	rt.Content = content.NewStore(rt.Index, gw, content.Options{PageSize: cfg.PageSize, ChunkSize: cfg.ChunkSize, Logger: logger})
	logger.Info("runtime ready",
		"topics", len(catalog.All()),
		"vector_store", cfg.VectorStore,
		"chat_store", cfg.ChatStore,
		"llm_providers", pm.LLMCount(),
		"embed_providers", pm.EmbedCount())
	return rt, nil
}

func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

func (rt *Runtime) ChatStore() (storage.ChatStore, error) {
	switch rt.Config.ChatStore {
	case "postgres":
		return storage.NewChatRepo(rt.DB), nil
	case "sqlite":
		s, err := sqlite.NewChatStore(rt.Config.SQLiteDir)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() { _ = s.Close() })
		return s, nil
	case "memory":
		return storage.NewMemoryChatStore(), nil
	default:
		return nil, fmt.Errorf("unknown chat store %q", rt.Config.ChatStore)
	}
}

// IngestRuns is nil without Postgres.
func (rt *Runtime) IngestRuns() *storage.IngestRunRepo {
	if rt.DB == nil {
		return nil
	}
	return storage.NewIngestRunRepo(rt.DB)
}

func (rt *Runtime) auditor() synth.Auditor {
	if rt.DB == nil {
		return nil
	}
	repo := storage.NewLLMAuditRepo(rt.DB)
	return synth.AuditorFunc(func(ctx context.Context, rec synth.CallRecord) error {
		return repo.Insert(ctx, storage.LLMCallRecord{
			Operation:    rec.Operation,
			ProviderName: rec.Provider,
			Model:        rec.Model,
			Status:       rec.Status,
			ErrorType:    rec.ErrorType,
		})
	})
}

func (rt *Runtime) Synthesizer() *synth.Synthesizer {
	return synth.New(synth.ManagerSource{Manager: rt.Providers, ChatModel: rt.Config.ChatModel}, synth.Options{Auditor: rt.auditor(), Logger: rt.Logger})
}

// Tutor builds the conversational core and starts the session janitor,
// which stops with ctx.
func (rt *Runtime) Tutor(ctx context.Context, chats storage.ChatStore) *tutor.Service {
	ttl := time.Duration(rt.Config.SessionTTLMinutes) * time.Minute
	sessions := session.NewMemoryStore(ttl)
	if ttl > 0 {
		go sessions.Janitor(ctx, ttl/4, func(n int) {
			rt.Logger.Info("evicted idle sessions", "count", n)
		})
	}
	syn := rt.Synthesizer()
	res := resolver.New(syn, rt.Catalog, rt.Logger)
	return tutor.New(sessions, res, rt.Content, syn, rt.Catalog, tutor.Options{
		Chats:           chats,
		IntentThreshold: rt.Config.IntentThreshold,
		Logger:          rt.Logger,
	})
}
