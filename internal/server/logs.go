package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigtime/bigtime/internal/model"
	"github.com/bigtime/bigtime/internal/store"
)

// logPayload is the wire shape of a log row. The row id doubles as the
// remote id clients store.
type logPayload struct {
	ID        int64      `json:"id"`
	ClientID  string     `json:"client_id"`
	Badge     string     `json:"badge"`
	ClockIn   time.Time  `json:"clock_in"`
	ClockOut  *time.Time `json:"clock_out,omitempty"`
	DeviceID  string     `json:"device_id,omitempty"`
	DeviceTS  *time.Time `json:"device_ts,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toPayload(l *model.TimeLog) logPayload {
	return logPayload{
		ID:        l.ID,
		ClientID:  l.ClientID,
		Badge:     l.Badge,
		ClockIn:   l.ClockIn,
		ClockOut:  l.ClockOut,
		DeviceID:  l.DeviceID,
		DeviceTS:  l.DeviceTS,
		UpdatedAt: l.UpdatedAt,
	}
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	var filter store.LogFilter
	filter.Badge = r.URL.Query().Get("badge")
	if raw := r.URL.Query().Get("start"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "start must be RFC 3339")
			return
		}
		filter.Start = ts
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "end must be RFC 3339")
			return
		}
		filter.End = ts
	}

	logs, err := s.db.ListLogs(r.Context(), filter)
	if err != nil {
		s.log.Error("failed to list logs", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list logs")
		return
	}
	payloads := make([]logPayload, 0, len(logs))
	for _, l := range logs {
		payloads = append(payloads, toPayload(l))
	}
	s.respond(w, http.StatusOK, map[string]any{"logs": payloads})
}

type createLogBody struct {
	ClientID string     `json:"client_id"`
	Badge    string     `json:"badge"`
	ClockIn  time.Time  `json:"clock_in"`
	ClockOut *time.Time `json:"clock_out,omitempty"`
	DeviceID string     `json:"device_id,omitempty"`
	DeviceTS *time.Time `json:"device_ts,omitempty"`
}

func (s *Server) handleCreateLog(w http.ResponseWriter, r *http.Request) {
	var body createLogBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Badge == "" {
		s.respondError(w, http.StatusBadRequest, "badge is required")
		return
	}
	if body.ClockIn.IsZero() {
		s.respondError(w, http.StatusBadRequest, "clock_in is required")
		return
	}
	if body.ClockOut != nil && body.ClockOut.Before(body.ClockIn) {
		s.respondError(w, http.StatusBadRequest, "clock_out precedes clock_in")
		return
	}

	if _, err := s.db.GetEmployeeByBadge(r.Context(), body.Badge); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "unknown badge "+body.Badge)
			return
		}
		s.log.Error("failed to check badge", "badge", body.Badge, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to create log")
		return
	}

	l := &model.TimeLog{
		ClientID: body.ClientID,
		Badge:    body.Badge,
		ClockIn:  body.ClockIn,
		ClockOut: body.ClockOut,
		DeviceID: body.DeviceID,
		DeviceTS: body.DeviceTS,
	}
	existing, err := s.db.InsertLogAuthoritative(r.Context(), l)
	if err != nil {
		if errors.Is(err, store.ErrOpenShift) {
			s.respondError(w, http.StatusConflict,
				"badge "+body.Badge+" already has an open shift")
			return
		}
		s.log.Error("failed to create log", "badge", body.Badge, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to create log")
		return
	}

	status := http.StatusCreated
	if existing {
		// Repeat of a create the client never saw the answer to.
		status = http.StatusOK
	}
	s.log.Info("log created", "id", l.ID, "badge", l.Badge, "existing", existing)
	s.respond(w, status, toPayload(l))
}

type updateLogBody struct {
	ClientID string     `json:"client_id,omitempty"`
	ClockOut time.Time  `json:"clock_out"`
	DeviceID string     `json:"device_id,omitempty"`
	DeviceTS *time.Time `json:"device_ts,omitempty"`
}

func (s *Server) handleUpdateLog(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "log id must be numeric")
		return
	}
	var body updateLogBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.ClockOut.IsZero() {
		s.respondError(w, http.StatusBadRequest, "clock_out is required")
		return
	}

	l, err := s.db.GetLogByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "log not found")
			return
		}
		s.log.Error("failed to load log", "id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to update log")
		return
	}
	if body.ClockOut.Before(l.ClockIn) {
		s.respondError(w, http.StatusBadRequest, "clock_out precedes clock_in")
		return
	}

	clockOut := body.ClockOut
	if err := s.db.UpdateClockOutNoTrack(r.Context(), id, &clockOut, time.Now().UTC()); err != nil {
		s.log.Error("failed to update log", "id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to update log")
		return
	}

	l, err = s.db.GetLogByID(r.Context(), id)
	if err != nil {
		s.log.Error("failed to reload log", "id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to update log")
		return
	}
	s.log.Info("log updated", "id", id, "badge", l.Badge)
	s.respond(w, http.StatusOK, toPayload(l))
}

func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "log id must be numeric")
		return
	}
	if err := s.db.DeleteLogNoTrack(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "log not found")
			return
		}
		s.log.Error("failed to delete log", "id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to delete log")
		return
	}
	s.log.Info("log deleted", "id", id)
	s.respond(w, http.StatusOK, map[string]int64{"id": id})
}
