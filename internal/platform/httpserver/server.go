package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	votingsession "plenary/contexts/governance/voting-session"
	votingerrors "plenary/contexts/governance/voting-session/domain/errors"
	votinghttp "plenary/contexts/governance/voting-session/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "plenary/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	voting votingsession.Module
}

func New(voting votingsession.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		voting: voting,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/v1/agenda-items", s.handleCreateAgendaItem)
	s.mux.HandleFunc("GET /api/v1/agenda-items", s.handleListAgendaItems)
	s.mux.HandleFunc("GET /api/v1/agenda-items/{item_id}", s.handleGetAgendaItem)

	s.mux.HandleFunc("POST /api/v1/sessions", s.handleOpenSession)
	s.mux.HandleFunc("GET /api/v1/sessions/{session_id}", s.handleGetSession)
	s.mux.HandleFunc("GET /api/v1/sessions/{session_id}/result", s.handleGetTally)
	s.mux.HandleFunc("POST /api/v1/sessions/{session_id}/votes", s.handleSubmitVote)
}

func (s *Server) handleCreateAgendaItem(w http.ResponseWriter, r *http.Request) {
	var req votinghttp.CreateAgendaItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.voting.Handler.CreateAgendaItemHandler(r.Context(), req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListAgendaItems(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.ListAgendaItemsHandler(r.Context())
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetAgendaItem(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("item_id")
	resp, err := s.voting.Handler.GetAgendaItemHandler(r.Context(), itemID)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req votinghttp.OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.voting.Handler.OpenSessionHandler(r.Context(), req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	resp, err := s.voting.Handler.GetSessionHandler(r.Context(), sessionID)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	var req votinghttp.SubmitVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	sessionID := r.PathValue("session_id")
	resp, err := s.voting.Handler.SubmitVoteHandler(r.Context(), sessionID, req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetTally(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	resp, err := s.voting.Handler.GetTallyHandler(r.Context(), sessionID)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeVotingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, votingerrors.ErrAgendaItemNotFound):
		writeVotingError(w, http.StatusNotFound, "agenda_item_not_found", err.Error())
	case errors.Is(err, votingerrors.ErrSessionNotFound):
		writeVotingError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, votingerrors.ErrVoterNotEligible):
		writeVotingError(w, http.StatusNotFound, "voter_not_eligible", err.Error())
	case errors.Is(err, votingerrors.ErrSessionClosed):
		writeVotingError(w, http.StatusUnprocessableEntity, "session_closed", err.Error())
	case errors.Is(err, votingerrors.ErrDuplicateVote):
		writeVotingError(w, http.StatusConflict, "duplicate_vote", err.Error())
	case errors.Is(err, votingerrors.ErrSessionAlreadyOpen):
		writeVotingError(w, http.StatusConflict, "session_already_open", err.Error())
	case errors.Is(err, votingerrors.ErrInvalidAgendaInput),
		errors.Is(err, votingerrors.ErrInvalidVoteInput),
		errors.Is(err, votingerrors.ErrInvalidVoterID):
		writeVotingError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeVotingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeVotingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, votinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
