package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/profile-engine/internal/profile"
	"github.com/jonathan/profile-engine/internal/server/middleware"
)

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const multipartMemory = 8 << 20

func invalid(field, message string) error {
	return &profile.ErrValidation{Field: field, Message: message}
}

// currentUser returns the authenticated user. It cannot fail behind the auth
// middleware.
func currentUser(r *http.Request) uuid.UUID {
	userID, _ := middleware.GetUserID(r)
	return userID
}

// pathID parses a UUID path value.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, invalid(name, "must be a UUID")
	}
	return id, nil
}

// decodeJSON decodes a JSON request body into dst, rejecting unknown fields
// and trailing data.
func decodeJSON(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return invalid("body", "request body is empty")
		}
		return invalid("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	if dec.More() {
		return invalid("body", "unexpected data after JSON object")
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.EqualFold(mediaType, "multipart/form-data")
}

// parseMultipart bounds and parses a multipart body.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	if !isMultipart(r) {
		return invalid("body", "expected multipart/form-data")
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return invalid("body", fmt.Sprintf("request exceeds %d bytes", tooLarge.Limit))
		}
		return invalid("body", fmt.Sprintf("malformed multipart body: %v", err))
	}
	return nil
}

// formUpload materializes the file part named field. It returns nil, nil
// when the part is absent and optional.
func formUpload(r *http.Request, field string, required bool) (*profile.Upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		if required {
			return nil, invalid(field, "file is required")
		}
		return nil, nil
	}
	if err != nil {
		return nil, invalid(field, fmt.Sprintf("unreadable file part: %v", err))
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, invalid(field, fmt.Sprintf("unreadable file part: %v", err))
	}
	return &profile.Upload{Data: data, OriginalName: header.Filename, Size: header.Size}, nil
}
