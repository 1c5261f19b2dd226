package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/wesm/zenhub-mirror/internal/store"
)

// withAuth rejects requests whose Authorization header does not match the
// pre-shared key, ignoring case. Rejections are delayed to slow down guessing.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.presharedKey == "" || !strings.EqualFold(r.Header.Get("Authorization"), s.presharedKey) {
			s.logger.Warn("rejected unauthenticated request", "path", r.URL.Path, "remote", r.RemoteAddr)
			select {
			case <-time.After(s.authFailureDelay):
			case <-r.Context().Done():
				return
			}
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write json response", "status", status, "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeResource writes v, or maps a lookup failure to 404 or 500.
func (s *Server) writeResource(w http.ResponseWriter, r *http.Request, v any, err error) {
	if store.IsNotFound(err) {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		s.logger.Error("store read failed", "path", r.URL.Path, "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func pathRepoID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("repoId"), 10, 64)
	return id, err == nil
}

func pathIDs(r *http.Request) (int64, int, bool) {
	repoID, ok := pathRepoID(r)
	if !ok {
		return 0, 0, false
	}
	issue, err := strconv.Atoi(r.PathValue("issueId"))
	return repoID, issue, err == nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"initialized": s.db.IsInitialized(),
	})
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	repoID, ok := pathRepoID(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid repository id")
		return
	}
	v, err := s.db.GetBoard(repoID)
	s.writeResource(w, r, v, err)
}

func (s *Server) handleDependencies(w http.ResponseWriter, r *http.Request) {
	repoID, ok := pathRepoID(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid repository id")
		return
	}
	v, err := s.db.GetDependencies(repoID)
	s.writeResource(w, r, v, err)
}

func (s *Server) handleEpics(w http.ResponseWriter, r *http.Request) {
	repoID, ok := pathRepoID(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid repository id")
		return
	}
	v, err := s.db.GetEpics(repoID)
	s.writeResource(w, r, v, err)
}

func (s *Server) handleEpic(w http.ResponseWriter, r *http.Request) {
	repoID, issue, ok := pathIDs(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid repository or issue id")
		return
	}
	v, err := s.db.GetEpic(repoID, issue)
	s.writeResource(w, r, v, err)
}

func (s *Server) handleIssueData(w http.ResponseWriter, r *http.Request) {
	repoID, issue, ok := pathIDs(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid repository or issue id")
		return
	}
	v, err := s.db.GetIssueData(repoID, issue)
	s.writeResource(w, r, v, err)
}

func (s *Server) handleIssueEvents(w http.ResponseWriter, r *http.Request) {
	repoID, issue, ok := pathIDs(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid repository or issue id")
		return
	}
	v, err := s.db.GetIssueEvents(repoID, issue)
	s.writeResource(w, r, v, err)
}

// handleChangeEvents lists change events with time >= since (unix ms, default 0).
func (s *Server) handleChangeEvents(w http.ResponseWriter, r *http.Request) {
	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid since")
			return
		}
		since = v
	}
	events, err := s.db.RecentChangeEvents(since)
	s.writeResource(w, r, events, err)
}
