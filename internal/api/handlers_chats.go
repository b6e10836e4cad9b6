package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"medtutor/internal/models"
	"medtutor/internal/storage"
	"medtutor/internal/util"

	"github.com/go-chi/chi/v5"
)

// messageView is the wire form of a stored message; the attachment is
// emitted next to its discriminator.
type messageView struct {
	MessageID      string                `json:"messageId"`
	ChatID         string                `json:"chatId"`
	UserID         string                `json:"userId"`
	Role           models.Role           `json:"role"`
	Content        string                `json:"content"`
	Timestamp      time.Time             `json:"timestamp"`
	AttachmentType models.AttachmentKind `json:"attachmentType,omitempty"`
	Attachment     json.RawMessage       `json:"attachment,omitempty"`
}

func toMessageView(m models.StoredMessage) (messageView, error) {
	kind, data, err := models.EncodeAttachment(m.Attachment)
	if err != nil {
		return messageView{}, err
	}
	return messageView{
		MessageID:      m.MessageID,
		ChatID:         m.ChatID,
		UserID:         m.UserID,
		Role:           m.Role,
		Content:        m.Content,
		Timestamp:      m.Timestamp,
		AttachmentType: kind,
		Attachment:     data,
	}, nil
}

func intParam(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Title  string `json:"title"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeErr(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		req.Title = "New chat"
	}
	chat, err := s.chats.CreateChat(r.Context(), req.UserID, req.Title)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if userID == "" {
		writeErr(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}
	chats, err := s.chats.ListChats(r.Context(), userID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

// ownedChat loads the chat and checks it belongs to userID when one is given.
// It writes the error response itself and reports whether to continue.
func (s *Server) ownedChat(w http.ResponseWriter, r *http.Request, userID string) (models.Chat, bool) {
	chat, err := s.chats.GetChat(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		if errors.Is(err, util.ErrChatNotFound) {
			writeErr(w, http.StatusNotFound, err)
			return models.Chat{}, false
		}
		writeErr(w, http.StatusInternalServerError, err)
		return models.Chat{}, false
	}
	if chat.IsDeleted {
		writeErr(w, http.StatusNotFound, util.ErrChatNotFound)
		return models.Chat{}, false
	}
	if userID != "" && chat.UserID != userID {
		writeErr(w, http.StatusForbidden, errForbidden)
		return models.Chat{}, false
	}
	return chat, true
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	chat, ok := s.ownedChat(w, r, strings.TrimSpace(r.URL.Query().Get("user")))
	if !ok {
		return
	}
	msgs, err := s.chats.ListMessages(r.Context(), chat.ChatID, intParam(r, "limit", storage.DefaultMessageLimit))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		v, err := toMessageView(m)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

func (s *Server) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID         string                `json:"user_id"`
		Role           models.Role           `json:"role"`
		Content        string                `json:"content"`
		AttachmentType models.AttachmentKind `json:"attachment_type"`
		Attachment     json.RawMessage       `json:"attachment"`
		CurrentTopic   string                `json:"current_topic"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeErr(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}
	switch req.Role {
	case models.RoleUser, models.RoleAssistant:
	case "":
		req.Role = models.RoleUser
	default:
		writeErr(w, http.StatusBadRequest, fmt.Errorf("unknown role %q", req.Role))
		return
	}
	att, err := models.DecodeAttachment(req.AttachmentType, req.Attachment)
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid attachment: %w", err))
		return
	}
	chat, ok := s.ownedChat(w, r, req.UserID)
	if !ok {
		return
	}
	stored, updated, err := s.chats.AppendMessage(r.Context(), models.StoredMessage{
		ChatID:     chat.ChatID,
		UserID:     req.UserID,
		Role:       req.Role,
		Content:    req.Content,
		Attachment: att,
	})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if topic := strings.TrimSpace(req.CurrentTopic); topic != "" {
		if _, known := s.catalog.Get(topic); known {
			if err := s.chats.SetCurrentTopic(r.Context(), chat.ChatID, topic); err != nil {
				s.logger.Warn("set current topic failed", "chat_id", chat.ChatID, "err", err)
			}
		}
	}
	view, err := toMessageView(stored)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": view, "updated": updated})
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeErr(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}
	deleted, err := s.chats.SoftDeleteChat(r.Context(), chi.URLParam(r, "chatID"), req.UserID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if !deleted {
		writeErr(w, http.StatusNotFound, util.ErrChatNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleLoadRecentContext(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		writeErr(w, http.StatusBadRequest, errors.New("session_id is required"))
		return
	}
	res := s.tutor.HydrateSession(r.Context(), chi.URLParam(r, "chatID"), sessionID, intParam(r, "limit", 0))
	writeJSON(w, http.StatusOK, res)
}
