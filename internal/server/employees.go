package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigtime/bigtime/internal/model"
	"github.com/bigtime/bigtime/internal/store"
)

func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := s.db.ListEmployees(r.Context())
	if err != nil {
		s.log.Error("failed to list employees", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list employees")
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"employees": employees})
}

func (s *Server) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var emp model.Employee
	if err := json.NewDecoder(r.Body).Decode(&emp); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	emp.ID = 0
	if err := emp.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.db.GetEmployeeByBadge(r.Context(), emp.Badge); err == nil {
		s.respondError(w, http.StatusConflict, "employee with badge "+emp.Badge+" already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		s.log.Error("failed to check badge", "badge", emp.Badge, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to create employee")
		return
	}

	if err := s.db.InsertEmployeeNoTrack(r.Context(), &emp); err != nil {
		s.log.Error("failed to create employee", "badge", emp.Badge, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to create employee")
		return
	}
	s.log.Info("employee created", "badge", emp.Badge)
	s.respond(w, http.StatusCreated, emp)
}

func (s *Server) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	badge := chi.URLParam(r, "badge")

	if _, err := s.db.GetEmployeeByBadge(r.Context(), badge); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "employee "+badge+" not found")
			return
		}
		s.log.Error("failed to load employee", "badge", badge, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to update employee")
		return
	}

	var emp model.Employee
	if err := json.NewDecoder(r.Body).Decode(&emp); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	emp.Badge = badge
	if err := emp.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.db.UpsertEmployeeNoTrack(r.Context(), &emp); err != nil {
		s.log.Error("failed to update employee", "badge", badge, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to update employee")
		return
	}
	s.log.Info("employee updated", "badge", badge)
	s.respond(w, http.StatusOK, emp)
}

func (s *Server) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	badge := chi.URLParam(r, "badge")
	if err := s.db.DeleteEmployeeNoTrack(r.Context(), badge); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "employee "+badge+" not found")
			return
		}
		s.log.Error("failed to delete employee", "badge", badge, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to delete employee")
		return
	}
	s.log.Info("employee deleted", "badge", badge)
	s.respond(w, http.StatusOK, map[string]string{"badge": badge})
}
