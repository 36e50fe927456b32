package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/agisfl-core/internal/infra/auth"
	"go.uber.org/zap"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.authSvc.Authenticate(req.Username, req.Password); err != nil {
		s.logger.Warn("login rejected", zap.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.authSvc.GenerateToken(req.Username)
	if err != nil {
		s.logger.Error("token generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, token)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view := s.store.CurrentView()
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.AcknowledgeAlert(id) {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	s.logger.Info("alert acknowledged",
		zap.String("id", id),
		zap.String("operator", auth.UserFromContext(r.Context())))
	writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}

// handleMitigateThreat — ручная ремедиация оператором. Повторный вызов
// по уже погашенной угрозе возвращает 409.
func (s *Server) handleMitigateThreat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.MarkMitigated(id) {
		writeError(w, http.StatusConflict, "threat not found or already mitigated")
		return
	}
	s.metrics.ThreatsMitigated.Inc()
	s.logger.Info("threat mitigated by operator",
		zap.String("id", id),
		zap.String("operator", auth.UserFromContext(r.Context())))
	writeJSON(w, http.StatusOK, map[string]string{"status": "mitigated"})
}

// handleDismissThreat помечает угрозу как ложное срабатывание.
func (s *Server) handleDismissThreat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.DismissThreat(id) {
		writeError(w, http.StatusNotFound, "threat not found")
		return
	}
	s.logger.Info("threat dismissed as false positive",
		zap.String("id", id),
		zap.String("operator", auth.UserFromContext(r.Context())))
	writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
