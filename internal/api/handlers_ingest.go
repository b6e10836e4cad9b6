package api

import (
	"net/http"
	"strings"

	"medtutor/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

func (s *Server) handleStartIngest(w http.ResponseWriter, r *http.Request) {
	if s.temporal == nil {
		writeErr(w, http.StatusServiceUnavailable, errTemporalDisabled)
		return
	}
	var req struct {
		Topics []string `json:"topics"`
		Force  bool     `json:"force"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	in := workflows.CatalogIngestInput{
		RunID:                 uuid.NewString(),
		Topics:                req.Topics,
		MaxConcurrentChildren: s.cfg.IngestMaxChildren,
		Force:                 req.Force,
	}
	_, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       workflows.CatalogIngestWorkflowID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.CatalogIngestWorkflow, in)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already started") {
			writeErr(w, http.StatusConflict, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"run_id": in.RunID, "workflow_id": workflows.CatalogIngestWorkflowID})
}

// handleIngestProgress asks the running workflow first and falls back to
// the persisted per-topic runs once it has finished.
func (s *Server) handleIngestProgress(w http.ResponseWriter, r *http.Request) {
	if s.temporal != nil {
		val, err := s.temporal.QueryWorkflow(r.Context(), workflows.CatalogIngestWorkflowID, "", workflows.QueryGetProgress)
		if err == nil {
			var p workflows.CatalogIngestProgress
			if err := val.Get(&p); err == nil {
				writeJSON(w, http.StatusOK, map[string]any{"source": "workflow", "progress": p})
				return
			}
		}
		s.logger.Debug("ingest progress query failed", "err", err)
	}
	if s.runs == nil {
		writeErr(w, http.StatusServiceUnavailable, errTemporalDisabled)
		return
	}
	runs, err := s.runs.List(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"source": "store", "runs": runs})
}
