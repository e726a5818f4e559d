// Package http exposes the ingestion and read API of the pipeline.
// All heavy work happens asynchronously: the upload endpoint only
// persists audio and enqueues tasks.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/Heterod0x/oto/pkg/usecase/conversation"
	"github.com/Heterod0x/oto/pkg/usecase/profile"
	"github.com/Heterod0x/oto/pkg/utils/logging"
	"github.com/Heterod0x/oto/pkg/utils/metrics"
	"github.com/go-chi/chi/v5"
)

// maxUploadBytes bounds a single audio upload (32 MiB).
const maxUploadBytes = 32 << 20

// Server routes HTTP requests to the usecases.
type Server struct {
	conversations *conversation.UseCase
	profiles      *profile.UseCase
}

// New creates the HTTP server.
func New(conversations *conversation.UseCase, profiles *profile.UseCase) *Server {
	return &Server{
		conversations: conversations,
		profiles:      profiles,
	}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.Handler().ServeHTTP(w, r)
	})

	r.Post("/conversation", s.handleStoreAudio)
	r.Get("/conversation", s.handleListConversations)
	r.Get("/conversation/search", s.handleSearchConversations)
	r.Get("/profile/{userID}", s.handleGetProfile)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleStoreAudio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Oversize uploads are rejected outright. A truncated recording must
	// never reach the pipeline.
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "audio exceeds upload size limit")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	userID := model.UserID(r.FormValue("user_id"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read audio")
		return
	}

	conversationID, err := s.conversations.StoreAudio(ctx, userID, data)
	if err != nil {
		logging.From(ctx).Error("failed to store audio",
			slog.Any("user_id", userID), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "failed to store audio")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"conversation_id": conversationID,
	})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := model.UserID(r.URL.Query().Get("user_id"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	conversations, err := s.conversations.List(ctx, userID)
	if err != nil {
		logging.From(ctx).Error("failed to list conversations",
			slog.Any("user_id", userID), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	if conversations == nil {
		conversations = []*model.ConversationSummary{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"conversations": conversations,
	})
}

func (s *Server) handleSearchConversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	results, err := s.conversations.Search(ctx, query, limit)
	if err != nil {
		logging.From(ctx).Error("failed to search conversations",
			slog.String("query", query), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "failed to search conversations")
		return
	}

	summaries := make([]*model.ConversationSummary, 0, len(results))
	for _, conv := range results {
		summaries = append(summaries, conv.Summary())
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"conversations": summaries,
	})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := model.UserID(chi.URLParam(r, "userID"))
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if model.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "profile not found")
			return
		}
		logging.From(ctx).Error("failed to get profile",
			slog.Any("user_id", userID), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"profile": p,
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"error": message})
}
