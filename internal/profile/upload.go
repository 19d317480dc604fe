package profile

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/profile-engine/internal/artifact"
	"github.com/jonathan/profile-engine/internal/types"
)

// Upload is file content already materialized by the transport layer.
type Upload struct {
	Data         []byte
	OriginalName string
	Size         int64 // declared size; must equal len(Data)
}

// Limits bounds upload sizes.
type Limits struct {
	MaxResumeBytes int64
	MaxImageBytes  int64
}

// DefaultLimits returns 10 MiB for resumes and documents and 5 MiB for images.
func DefaultLimits() Limits {
	return Limits{MaxResumeBytes: 10 << 20, MaxImageBytes: 5 << 20}
}

type uploadKind int

const (
	kindResume uploadKind = iota
	kindImage
	kindDocument
)

var (
	resumeExtensions = []string{".pdf", ".doc", ".docx", ".txt", ".rtf", ".odt"}
	imageExtensions  = []string{".png", ".jpg", ".jpeg", ".webp", ".gif"}
)

const maxNameLen = 255

func (k uploadKind) extensions() []string {
	switch k {
	case kindImage:
		return imageExtensions
	case kindResume:
		return resumeExtensions
	default:
		return append(append([]string{}, resumeExtensions...), imageExtensions...)
	}
}

func (l Limits) maxBytes(k uploadKind) int64 {
	if k == kindImage {
		return l.MaxImageBytes
	}
	return l.MaxResumeBytes
}

// check validates up for the given kind and returns its cleaned file name.
func (l Limits) check(k uploadKind, field string, up Upload) (string, error) {
	if !types.ValidText(up.OriginalName) {
		return "", &ErrValidation{Field: field, Message: "file name must be valid UTF-8 text without NUL characters"}
	}
	name := cleanName(up.OriginalName)
	if name == "" {
		return "", &ErrValidation{Field: field, Message: "file name is required"}
	}

	ext := artifact.Extension(name)
	allowed := k.extensions()
	if !contains(allowed, ext) {
		return "", &ErrValidation{Field: field, Message: fmt.Sprintf("file type not allowed, expected one of %s", strings.Join(allowed, " "))}
	}

	if len(up.Data) == 0 {
		return "", &ErrValidation{Field: field, Message: "file is empty"}
	}
	if up.Size != int64(len(up.Data)) {
		return "", &ErrValidation{Field: field, Message: "declared size does not match content"}
	}
	if limit := l.maxBytes(k); limit > 0 && up.Size > limit {
		return "", &ErrValidation{Field: field, Message: fmt.Sprintf("file exceeds %d bytes", limit)}
	}
	return name, nil
}

// cleanName strips any directory part from a client-supplied file name and
// keeps at most maxNameLen bytes from its end, cut on a rune boundary.
func cleanName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	name = path.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	if len(name) > maxNameLen {
		cut := len(name) - maxNameLen
		for cut < len(name) && !utf8.RuneStart(name[cut]) {
			cut++
		}
		name = name[cut:]
	}
	return name
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
