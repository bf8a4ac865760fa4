package server

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/soundware/sndw/playlists"
	"github.com/ZanzyTHEbar/soundware/sndw/recommend"
	"github.com/ZanzyTHEbar/soundware/sndw/recommend/adapters"
)

// SessionCookie carries the conversation id for clients that do not send one.
const SessionCookie = "sndw_session"

const maxBodySize = 1 << 20

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=4000"`
	SessionID string `json:"sessionId,omitempty" validate:"omitempty,max=128"`
}

// ChatResponse is the body of a successful POST /chat.
type ChatResponse struct {
	Message   []recommend.Recommendation `json:"message"`
	SessionID string                     `json:"sessionId"`
}

// SavePlaylistsRequest is the body of POST /save-playlists.
type SavePlaylistsRequest struct {
	UserID    string          `json:"userId" validate:"max=256"`
	Playlists json.RawMessage `json:"playlists" validate:"required"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	sessionID := s.sessionID(w, r, req.SessionID)

	res, err := s.turns.RunTurn(r.Context(), sessionID, req.Message)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Chat turn failed")
		switch {
		case errors.Is(err, recommend.ErrEmptyMessage):
			respondError(w, http.StatusBadRequest, "Invalid request", err)
		case errors.Is(err, adapters.ErrRateLimitExceeded):
			var rle *adapters.RateLimitError
			if errors.As(err, &rle) && rle.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rle.RetryAfter.Seconds()))))
			}
			respondError(w, http.StatusTooManyRequests, "Too many requests", err)
		case errors.Is(err, recommend.ErrGeneration):
			respondError(w, http.StatusBadGateway, "Failed to process recommendations", err)
		case errors.Is(err, recommend.ErrInsufficientResults):
			respondError(w, http.StatusInternalServerError, "Failed to process recommendations", err)
		default:
			respondError(w, http.StatusInternalServerError, "Something went wrong", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Message:   res.Recommendations,
		SessionID: res.SessionID,
	})
}

// sessionID picks the conversation for a request: the body, then the cookie,
// then a fresh id remembered in the cookie.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request, fromBody string) string {
	if id := strings.TrimSpace(fromBody); id != "" {
		return id
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) handleSavePlaylists(w http.ResponseWriter, r *http.Request) {
	var req SavePlaylistsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondError(w, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	if err := s.playlists.Save(r.Context(), req.UserID, req.Playlists); err != nil {
		s.logger.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to save playlists")
		respondError(w, http.StatusInternalServerError, "Failed to save playlists", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Playlists saved successfully"})
}

func (s *Server) handleGetPlaylists(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userId"))
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	data, err := s.playlists.Load(r.Context(), userID)
	if errors.Is(err, playlists.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string][]any{"playlists": {}})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load playlists")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve playlists", nil)
		return
	}

	writeRaw(w, http.StatusOK, data)
}

func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}
