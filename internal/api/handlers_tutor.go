package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

type tutorRequest struct {
	SessionID       string `json:"session_id"`
	Message         string `json:"message"`
	SystemPrompt    string `json:"system_prompt"`
	OpenRouterKey   string `json:"openrouter_key"`
	OpenRouterModel string `json:"openrouter_model"`
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid json")
	}
	return nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id := s.tutor.CreateSession()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "session_id": id})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req tutorRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeErr(w, http.StatusBadRequest, errors.New("message is required"))
		return
	}
	o := override(r, req.OpenRouterKey, req.OpenRouterModel)
	writeJSON(w, http.StatusOK, s.tutor.Chat(r.Context(), req.SessionID, req.Message, req.SystemPrompt, o))
}

func (s *Server) handleExtractTopic(w http.ResponseWriter, r *http.Request) {
	var req tutorRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	o := override(r, req.OpenRouterKey, req.OpenRouterModel)
	writeJSON(w, http.StatusOK, s.tutor.ResolveTopic(r.Context(), req.SessionID, req.Message, o))
}

func (s *Server) handleMCQ(w http.ResponseWriter, r *http.Request) {
	var req tutorRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeErr(w, http.StatusBadRequest, errors.New("session_id is required"))
		return
	}
	o := override(r, req.OpenRouterKey, req.OpenRouterModel)
	writeJSON(w, http.StatusOK, s.tutor.GenerateMCQ(r.Context(), req.SessionID, o))
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	var req tutorRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	o := override(r, req.OpenRouterKey, req.OpenRouterModel)
	writeJSON(w, http.StatusOK, s.tutor.GetDiagram(r.Context(), req.SessionID, req.Message, o))
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	var req tutorRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeErr(w, http.StatusBadRequest, errors.New("session_id is required"))
		return
	}
	o := override(r, req.OpenRouterKey, req.OpenRouterModel)
	writeJSON(w, http.StatusOK, s.tutor.GetVideos(r.Context(), req.SessionID, o))
}
