package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownReference is returned by Delete for a reference the store did not issue.
var ErrUnknownReference = errors.New("storage: reference not owned by this store")

// UploadInput describes a single object to persist.
type UploadInput struct {
	Key         string
	Body        []byte
	ContentType string
}

// FileStore persists uploaded files and returns a public reference (URL or path).
type FileStore interface {
	Save(ctx context.Context, input UploadInput) (string, error)
	Delete(ctx context.Context, ref string) error
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]+`)

func sanitizeFilename(filename string) string {
	return unsafeChars.ReplaceAllString(filename, "_")
}

// UniqueFilename builds folder/YYYYMMDD-uuid-name, keeping only safe characters
// of the original name.
func UniqueFilename(folder, originalFilename string, now time.Time) string {
	name := sanitizeFilename(originalFilename)
	key := fmt.Sprintf("%s-%s-%s", now.Format("20060102"), uuid.New().String(), name)
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return key
	}
	return folder + "/" + key
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

// keyFromRef strips base from ref. It reports false when ref was not built from base.
func keyFromRef(base, ref string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(ref, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(ref, prefix)
	if key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}
