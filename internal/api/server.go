package api

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"medtutor/internal/config"
	"medtutor/internal/models"
	"medtutor/internal/storage"
	"medtutor/internal/synth"
	"medtutor/internal/topics"
	"medtutor/internal/tutor"
	"medtutor/internal/util"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
)

const (
	headerOpenRouterKey   = "X-OpenRouter-Key"
	headerOpenRouterModel = "X-OpenRouter-Model"
)

// WorkflowClient is the part of the Temporal client the API uses.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options tclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tclient.WorkflowRun, error)
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...interface{}) (converter.EncodedValue, error)
}

type RunLister interface {
	List(ctx context.Context) ([]models.IngestRun, error)
}

type Deps struct {
	Tutor   *tutor.Service
	Chats   storage.ChatStore
	Catalog *topics.Catalog
	// Temporal and Runs are optional; ingestion routes answer 503 without them.
	Temporal WorkflowClient
	Runs     RunLister
	Logger   *slog.Logger
}

type Server struct {
	cfg      config.Config
	tutor    *tutor.Service
	chats    storage.ChatStore
	catalog  *topics.Catalog
	temporal WorkflowClient
	runs     RunLister
	logger   *slog.Logger
}

func NewServer(cfg config.Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		tutor:    deps.Tutor,
		chats:    deps.Chats,
		catalog:  deps.Catalog,
		temporal: deps.Temporal,
		runs:     deps.Runs,
		logger:   deps.Logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer, withCORS)

	r.Get("/health", s.handleHealth)

	r.Post("/create_session", s.handleCreateSession)
	r.Post("/chat", s.handleChat)
	r.Post("/extract_topic", s.handleExtractTopic)
	r.Post("/mcq", s.handleMCQ)
	r.Post("/diagram", s.handleDiagram)
	r.Post("/video", s.handleVideo)

	r.Route("/chats", func(r chi.Router) {
		r.Get("/", s.handleListChats)
		r.Post("/", s.handleCreateChat)
		r.Route("/{chatID}", func(r chi.Router) {
			r.Get("/messages", s.handleListMessages)
			r.Post("/messages", s.handleAppendMessage)
			r.Post("/delete", s.handleDeleteChat)
			r.Post("/load_recent_context", s.handleLoadRecentContext)
		})
	})

	r.Post("/ingest", s.handleStartIngest)
	r.Get("/ingest/progress", s.handleIngestProgress)

	r.Get("/diagrams/{topic}/{file}", s.handleDiagramFile)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// override reads the caller's provider credential, headers first.
func override(r *http.Request, bodyKey, bodyModel string) synth.Override {
	o := synth.Override{
		APIKey: strings.TrimSpace(r.Header.Get(headerOpenRouterKey)),
		Model:  strings.TrimSpace(r.Header.Get(headerOpenRouterModel)),
	}
	if o.APIKey == "" {
		o.APIKey = strings.TrimSpace(bodyKey)
	}
	if o.Model == "" {
		o.Model = strings.TrimSpace(bodyModel)
	}
	return o
}

// handleDiagramFile serves /diagrams/{topic}/{file} from the topic folder.
func (s *Server) handleDiagramFile(w http.ResponseWriter, r *http.Request) {
	t, ok := s.catalog.Get(chi.URLParam(r, "topic"))
	if !ok {
		writeErr(w, http.StatusNotFound, errNotFound)
		return
	}
	file := chi.URLParam(r, "file")
	if !strings.EqualFold(filepath.Ext(file), ".png") {
		writeErr(w, http.StatusNotFound, errNotFound)
		return
	}
	http.ServeFile(w, r, util.SafeJoin(filepath.Join(s.cfg.DataRoot, t.Folder), file))
}
