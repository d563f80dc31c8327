package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"inkframe/internal/actions"
	"inkframe/internal/gateway"
	"inkframe/internal/session"
	"inkframe/internal/storage"
	"inkframe/internal/utils"
)

// Server holds all HTTP handler dependencies: the gateway for direct
// single-entity reads, the orchestrators for everything that touches
// the state slices, and the auth service for session management.
type Server struct {
	Store    gateway.RecordStore
	Auth     *gateway.AuthService
	Posts    *actions.PostActions
	Comments *actions.CommentActions
	Session  *session.Store
	Objects  storage.ObjectStore
	// Media is set when the GridFS backend serves public URLs itself;
	// nil with Cloudinary, which hosts its own.
	Media   *storage.GridFSStore
	Metrics *utils.MetricsCollector

	RequestTimeout time.Duration
}

// NewServer creates a new Server instance with the given components
func NewServer(
	store gateway.RecordStore,
	auth *gateway.AuthService,
	posts *actions.PostActions,
	comments *actions.CommentActions,
	sessionStore *session.Store,
	objects storage.ObjectStore,
	media *storage.GridFSStore,
	metrics *utils.MetricsCollector,
) *Server {
	return &Server{
		Store:          store,
		Auth:           auth,
		Posts:          posts,
		Comments:       comments,
		Session:        sessionStore,
		Objects:        objects,
		Media:          media,
		Metrics:        metrics,
		RequestTimeout: 10 * time.Second, // Default timeout for gateway calls
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps an AppError onto its HTTP status; anything else is a
// plain 500 with the message passed through.
func writeError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*utils.AppError); ok {
		writeJSON(w, utils.AppErrorToHTTPStatus(appErr.Code), errorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

// HandleHealth reports liveness plus the metrics summary.
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]interface{}{
			"status":  "ok",
			"metrics": s.Metrics.Snapshot(),
		}
		if s.Session != nil {
			snap := s.Session.State()
			payload["session"] = map[string]bool{
				"authenticated": snap.Authenticated(),
				"loading":       snap.Loading,
			}
		}
		writeJSON(w, http.StatusOK, payload)
	}
}
