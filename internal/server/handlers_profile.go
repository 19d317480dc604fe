package server

import (
	"net/http"
	"strings"

	"github.com/jonathan/profile-engine/internal/profile"
	"github.com/jonathan/profile-engine/internal/scoring"
	"github.com/jonathan/profile-engine/internal/types"
)

// handleCreateProfile creates the empty profile for a new account. The
// caller must be the account being provisioned.
func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if userID != currentUser(r) {
		s.errorResponse(w, http.StatusForbidden, "cannot create a profile for another user")
		return
	}

	p, err := s.profiles.CreateProfile(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, p)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.GetProfile(r.Context(), currentUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

// handleUpdateProfile accepts either a JSON ProfileUpdate or a multipart body
// with a "profile" JSON part and an optional "image" file part.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var (
		upd   types.ProfileUpdate
		image *profile.Upload
	)

	if isMultipart(r) {
		if err := s.parseMultipart(w, r); err != nil {
			s.writeError(w, r, err)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		if values := r.MultipartForm.Value["profile"]; len(values) > 0 {
			if err := decodeJSON(strings.NewReader(values[0]), &upd); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
		var err error
		if image, err = formUpload(r, "image", false); err != nil {
			s.writeError(w, r, err)
			return
		}
	} else if err := decodeJSON(r.Body, &upd); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.profiles.UpdateProfile(r.Context(), currentUser(r), upd, image)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

// scoreResponse explains the stored completion score.
type scoreResponse struct {
	CompletionScore int               `json:"completion_score"`
	Breakdown       scoring.Breakdown `json:"breakdown"`
	Unclamped       float64           `json:"unclamped"`
}

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	p, err := s.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.profiles.ScoreBreakdown(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, scoreResponse{
		CompletionScore: p.CompletionScore,
		Breakdown:       b,
		Unclamped:       b.Sum(),
	})
}
