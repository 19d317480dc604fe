package server

import (
	"net/http"
	"strings"

	"github.com/jonathan/profile-engine/internal/db"
	"github.com/jonathan/profile-engine/internal/profile"
)

// documentList wraps list responses so fields can be added later.
type documentList struct {
	Documents []db.Document `json:"documents"`
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.profiles.ListDocuments(r.Context(), currentUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []db.Document{}
	}
	s.jsonResponse(w, http.StatusOK, documentList{Documents: docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := s.profiles.GetDocument(r.Context(), currentUser(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, doc)
}

func (s *Server) handleGetDefaultResume(w http.ResponseWriter, r *http.Request) {
	doc, err := s.profiles.GetDefaultResume(r.Context(), currentUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if doc == nil {
		s.writeError(w, r, &profile.ErrNotFound{Resource: "default resume"})
		return
	}
	s.jsonResponse(w, http.StatusOK, doc)
}

// handleUploadResume stores the multipart "file" part as the new default resume.
func (s *Server) handleUploadResume(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	up, err := formUpload(r, "file", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := s.profiles.UploadResume(r.Context(), currentUser(r), *up)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, doc)
}

// handleUploadDocument stores the multipart "file" part as a document of the
// kind named by the "type" field.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	docType := db.DocType(strings.ToLower(strings.TrimSpace(r.FormValue("type"))))
	if docType == "" {
		s.writeError(w, r, invalid("type", "document type is required"))
		return
	}
	up, err := formUpload(r, "file", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := s.profiles.UploadDocument(r.Context(), currentUser(r), docType, *up)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.profiles.DeleteDocument(r.Context(), currentUser(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetDefaultResume(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.profiles.SetDefaultResume(r.Context(), currentUser(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
