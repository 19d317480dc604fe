package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/profile-engine/internal/db"
	"github.com/jonathan/profile-engine/internal/types"
)

func (s *Server) handleAddExperience(w http.ResponseWriter, r *http.Request) {
	var req types.ExperienceRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	exp, err := s.profiles.AddExperience(r.Context(), currentUser(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, exp)
}

func (s *Server) handleRemoveExperience(w http.ResponseWriter, r *http.Request) {
	s.removeEntry(w, r, s.profiles.RemoveExperience)
}

func (s *Server) handleAddEducation(w http.ResponseWriter, r *http.Request) {
	var req types.EducationRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	edu, err := s.profiles.AddEducation(r.Context(), currentUser(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, edu)
}

func (s *Server) handleRemoveEducation(w http.ResponseWriter, r *http.Request) {
	s.removeEntry(w, r, s.profiles.RemoveEducation)
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := s.profiles.ListSkills(r.Context(), currentUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if skills == nil {
		skills = []db.Skill{}
	}
	s.jsonResponse(w, http.StatusOK, map[string][]db.Skill{"skills": skills})
}

func (s *Server) handleAssignSkill(w http.ResponseWriter, r *http.Request) {
	var req types.SkillRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	skill, err := s.profiles.AssignSkill(r.Context(), currentUser(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, skill)
}

func (s *Server) handleUnassignSkill(w http.ResponseWriter, r *http.Request) {
	s.removeEntry(w, r, s.profiles.UnassignSkill)
}

// removeEntry runs a delete-by-id operation for the current user.
func (s *Server) removeEntry(w http.ResponseWriter, r *http.Request, remove func(ctx context.Context, userID, id uuid.UUID) error) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := remove(r.Context(), currentUser(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
