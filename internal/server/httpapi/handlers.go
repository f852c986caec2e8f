package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/wire"
)

type credentialsRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type registerResponse struct {
	ID       string `json:"id"`
	UserName string `json:"username"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type startTimerRequest struct {
	Description string `json:"description"`
}

type stopTimerRequest struct {
	ID int64 `json:"id"`
}

type exportResponse struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
	Timers    int    `json:"timers"`
	Size      int    `json:"size"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := s.auth.Register(r.Context(), req.UserName, req.Password)
	if err != nil {
		s.logFailure(r.Context(), "register", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{ID: user.ID, UserName: user.UserName})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := s.auth.Login(r.Context(), req.UserName, req.Password)
	if err != nil {
		s.logFailure(r.Context(), "login", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token.Value, ExpiresAt: token.ExpiresAt.UnixMilli()})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFrom(r.Context())

	if err := s.auth.Logout(r.Context(), session); err != nil {
		s.logFailure(r.Context(), "logout", err)
		writeError(w, err)
		return
	}
	closed := s.hub.Revoke(session.TokenID)
	s.logger.Debug(r.Context(), "push connections closed on logout", "user_id", session.UserID, "count", closed)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTimers(w http.ResponseWriter, r *http.Request) {
	switch status := r.URL.Query().Get("status"); status {
	case "", "all":
		s.listTimers(w, r, s.ledger.ListAll)
	case "active":
		s.listTimers(w, r, s.ledger.ListActive)
	default:
		writeError(w, fmt.Errorf("%w: status must be active or all, got %q", common.ErrorValidation, status))
	}
}

func (s *Server) handleListActive(w http.ResponseWriter, r *http.Request) {
	s.listTimers(w, r, s.ledger.ListActive)
}

func (s *Server) listTimers(w http.ResponseWriter, r *http.Request, list func(context.Context, string) ([]models.Timer, error)) {
	session, _ := SessionFrom(r.Context())

	timers, err := list(r.Context(), session.UserID)
	if err != nil {
		s.logFailure(r.Context(), "list timers", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.WireTimers(timers))
}

func (s *Server) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFrom(r.Context())

	var req startTimerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	timer, err := s.ledger.StartTimer(r.Context(), session.UserID, req.Description)
	if err != nil {
		s.logFailure(r.Context(), "start timer", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, timer.Wire())
}

func (s *Server) handleStopTimer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, fmt.Errorf("%w: timer id must be an integer", common.ErrorValidation))
		return
	}
	s.stopTimer(w, r, id)
}

func (s *Server) handleStopTimerByBody(w http.ResponseWriter, r *http.Request) {
	var req stopTimerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.stopTimer(w, r, req.ID)
}

func (s *Server) stopTimer(w http.ResponseWriter, r *http.Request, id int64) {
	session, _ := SessionFrom(r.Context())

	if _, err := s.ledger.StopTimer(r.Context(), session.UserID, id); err != nil {
		s.logFailure(r.Context(), "stop timer", err)
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFrom(r.Context())

	export, err := s.exports.Export(r.Context(), session.UserID)
	if err != nil {
		s.logFailure(r.Context(), "export", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, exportResponse{
		Key:       export.Key,
		URL:       export.URL,
		ExpiresAt: export.ExpiresAt.UnixMilli(),
		Timers:    export.Timers,
		Size:      export.Size,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// handlePush upgrades the request to a websocket and hands it to the hub.
// The token may come from the Authorization header or the token query
// parameter; without either the client must authenticate in-band.
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	token := common.BearerToken(r.Header.Get(common.AuthorizationHeaderName))
	if token == "" {
		token = r.URL.Query().Get(common.TokenQueryParam)
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered
		s.logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	s.hub.Serve(r.Context(), conn, wire.CodecFor(conn.Subprotocol()), token)
}

// logFailure logs errors the client cannot fix.
func (s *Server) logFailure(ctx context.Context, op string, err error) {
	if status, _ := errorStatus(err); status >= http.StatusInternalServerError {
		s.logger.Error(ctx, op+" failed", "request_id", RequestIDFrom(ctx), "error", err)
	}
}
