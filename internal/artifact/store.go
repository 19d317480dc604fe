// Package artifact provides durable storage for binary document content
// (resumes, profile images) kept outside the relational store.
//
// Every backend hands out opaque locators that are safe to persist in the
// document registry. Put never overwrites an existing artifact: each call
// returns a fresh locator.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Delete when no artifact exists for the locator.
var ErrNotFound = errors.New("artifact not found")

// ErrInvalidLocator is returned when a locator does not have the shape produced by NewLocator.
var ErrInvalidLocator = errors.New("invalid artifact locator")

// Store is the put/delete/exists contract every artifact backend implements.
type Store interface {
	// Put writes data under a new locator derived from suggestedName.
	Put(ctx context.Context, data []byte, suggestedName string) (string, error)
	// Delete removes the artifact. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, locator string) error
	// Exists reports whether an artifact is stored under locator.
	Exists(ctx context.Context, locator string) (bool, error)
}

// ObjectInfo describes a stored artifact for listing.
type ObjectInfo struct {
	Locator string
	Size    int64
	ModTime time.Time
}

// Lister is implemented by stores that can enumerate their artifacts.
// The reconciliation sweep requires it.
type Lister interface {
	List(ctx context.Context) ([]ObjectInfo, error)
}

const maxExtLen = 10

var locatorPattern = regexp.MustCompile(`^[0-9]{4}/[0-9]{2}/[0-9A-Za-z]{27}(\.[a-z0-9]{1,10})?$`)

// NewLocator returns a fresh locator of the form "yyyy/mm/<ksuid><.ext>".
// The extension is taken from suggestedName, lower-cased and stripped of
// anything but ASCII letters and digits.
func NewLocator(suggestedName string) string {
	id := ksuid.New()
	return fmt.Sprintf("%s/%s%s", id.Time().UTC().Format("2006/01"), id.String(), Extension(suggestedName))
}

// Extension returns the sanitized extension (with leading dot) of name, or "".
func Extension(name string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
	if ext == "" || ext == "." {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('.')
	for _, r := range ext[1:] {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 1 || sb.Len() > maxExtLen+1 {
		return ""
	}
	return sb.String()
}

// ValidLocator reports whether locator has the shape produced by NewLocator.
func ValidLocator(locator string) bool {
	return locatorPattern.MatchString(locator)
}

// ContentType guesses a MIME type from the name's extension.
func ContentType(name string) string {
	switch Extension(name) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".odt":
		return "application/vnd.oasis.opendocument.text"
	case ".rtf":
		return "application/rtf"
	case ".txt":
		return "text/plain"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

var (
	_ Store  = (*LocalStore)(nil)
	_ Store  = (*GCSStore)(nil)
	_ Store  = (*MemoryStore)(nil)
	_ Lister = (*LocalStore)(nil)
	_ Lister = (*GCSStore)(nil)
	_ Lister = (*MemoryStore)(nil)
)

// Backend names accepted by Open.
const (
	BackendLocal  = "local"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Root    string // local backend directory
	GCS     GCSConfig
}

// Open builds the configured store. The returned close function releases
// backend resources and is never nil.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (Store, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendLocal:
		s, err := NewLocalStore(cfg.Root, log)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case BackendGCS:
		s, err := NewGCSStore(ctx, cfg.GCS, log)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case BackendMemory:
		return NewMemoryStore(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown artifact backend %q", cfg.Backend)
	}
}
