// Package blob stores uploaded file bytes outside the database. Keys are
// opaque slash-separated paths produced by ObjectPath.
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"unicode"
)

var (
	ErrNotFound   = errors.New("blob: not found")
	ErrInvalidKey = errors.New("blob: invalid key")
)

// Storage is implemented by every backend.
type Storage interface {
	// Put writes size bytes from r under key, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Delete removes key. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
}

const maxFilenameLen = 120

// ObjectPath is the storage key for a file: projects/{projectID}/{fileID}_{filename}.
// The filename is reduced to a safe base name.
func ObjectPath(projectID, fileID, filename string) string {
	return "projects/" + projectID + "/" + fileID + "_" + SanitizeFilename(filename)
}

// SanitizeFilename strips directories and replaces anything outside
// [A-Za-z0-9._-] with '_'.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)),
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := strings.TrimLeft(b.String(), ".")
	if len(out) > maxFilenameLen {
		out = out[len(out)-maxFilenameLen:]
	}
	if out == "" || out == "_" {
		return "file"
	}
	return out
}

// validKey rejects keys that could escape a backend's namespace.
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	for seg := range strings.SplitSeq(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
