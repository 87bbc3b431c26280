// Package storage keeps uploaded attachment files on the local disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thereayou/voxus-chat/internal/apperr"
)

// AllowedTypes is the upload allow-list, matched on the sniffed content type.
var AllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"text/plain",
}

// StoredFile describes a file that has been written under the store root.
type StoredFile struct {
	StoredName   string
	OriginalName string
	Path         string
	Size         int64
	MimeType     string
}

type LocalStore struct {
	dir      string
	maxBytes int64
	log      *zap.Logger
}

func NewLocalStore(dir string, maxBytes int64, log *zap.Logger) (*LocalStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, maxBytes: maxBytes, log: log}, nil
}

func (s *LocalStore) MaxBytes() int64 { return s.maxBytes }

// Save copies r into a new uuid-named file. Oversized or disallowed content is
// rejected with a validation error and leaves nothing behind.
func (s *LocalStore) Save(originalName string, r io.Reader) (*StoredFile, error) {
	originalName = filepath.Base(strings.TrimSpace(originalName))
	if originalName == "" || originalName == "." || originalName == string(filepath.Separator) {
		return nil, apperr.Validation("file name is required")
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, apperr.Persistence("create upload", err)
	}
	tmpName := tmp.Name()
	keep := false
	defer func() {
		if !keep {
			os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, io.LimitReader(r, s.maxBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, apperr.Persistence("write upload", err)
	}
	if n > s.maxBytes {
		return nil, apperr.Validation("file too large (max %s)", humanize.IBytes(uint64(s.maxBytes)))
	}
	if n == 0 {
		return nil, apperr.Validation("file is empty")
	}

	mtype, err := mimetype.DetectFile(tmpName)
	if err != nil {
		return nil, apperr.Persistence("detect file type", err)
	}
	allowed := mimeAllowed(mtype)
	if allowed == "" {
		return nil, apperr.Validation("file type %s not allowed", mtype.String())
	}

	stored := uuid.NewString() + extensionFor(originalName, mtype)
	path := filepath.Join(s.dir, stored)
	if err := os.Rename(tmpName, path); err != nil {
		return nil, apperr.Persistence("store upload", err)
	}
	keep = true

	s.log.Info("upload_stored",
		zap.String("stored_name", stored),
		zap.String("mime", allowed),
		zap.String("size", humanize.IBytes(uint64(n))))

	return &StoredFile{
		StoredName:   stored,
		OriginalName: originalName,
		Path:         path,
		Size:         n,
		MimeType:     allowed,
	}, nil
}

func mimeAllowed(m *mimetype.MIME) string {
	for ; m != nil; m = m.Parent() {
		for _, t := range AllowedTypes {
			if m.Is(t) {
				return t
			}
		}
	}
	return ""
}

func extensionFor(originalName string, m *mimetype.MIME) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if len(ext) > 1 && len(ext) <= 10 && strings.Trim(ext[1:], "abcdefghijklmnopqrstuvwxyz0123456789") == "" {
		return ext
	}
	return m.Extension()
}

// resolve maps a stored name to its path, refusing anything that is not a
// plain file name inside the store root.
func (s *LocalStore) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return "", apperr.Validation("invalid file name")
	}
	return filepath.Join(s.dir, name), nil
}

// Open returns the stored file for reading.
func (s *LocalStore) Open(name string) (*os.File, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.NotFound("file")
	}
	if err != nil {
		return nil, apperr.Persistence("open file", err)
	}
	return f, nil
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (s *LocalStore) Remove(name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("upload_remove_failed", zap.String("stored_name", name), zap.Error(err))
		return apperr.Persistence("remove file", err)
	}
	return nil
}
