// Package fileproc handles uploaded document files: extension validation,
// unique storage names, persistence to the upload directory, and plain-text
// extraction for PDF, DOCX, and TXT.
package fileproc

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors for upload processing.
var (
	// ErrExtensionNotAllowed is returned for file types outside the allow-list.
	ErrExtensionNotAllowed = errors.New("file type not allowed")

	// ErrNoText is returned when extraction produces no text.
	ErrNoText = errors.New("no text extracted")
)

// Processed describes a stored upload.
type Processed struct {
	StorageName string // unique on-disk name, uuid + original extension
	Path        string // full path under the upload directory
	Text        string // extracted plain text
}

// Processor validates, stores, and extracts text from uploaded files.
type Processor struct {
	uploadDir  string
	allowedExt map[string]bool
	logger     *slog.Logger
}

// New creates a Processor and ensures the upload directory exists.
func New(uploadDir string, allowedExtensions []string, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(uploadDir, 0750); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	extMap := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		extMap[strings.ToLower(ext)] = true
	}

	return &Processor{
		uploadDir:  uploadDir,
		allowedExt: extMap,
		logger:     logger,
	}, nil
}

// IsAllowed reports whether the filename's extension is on the allow-list.
func (p *Processor) IsAllowed(filename string) bool {
	return p.allowedExt[strings.ToLower(filepath.Ext(filename))]
}

// AllowedExtensions returns the allow-list, for error messages.
func (p *Processor) AllowedExtensions() []string {
	exts := make([]string, 0, len(p.allowedExt))
	for ext := range p.allowedExt {
		exts = append(exts, ext)
	}
	return exts
}

// UniqueName generates a storage name preserving the original extension.
func (p *Processor) UniqueName(originalFilename string) string {
	return uuid.New().String() + strings.ToLower(filepath.Ext(originalFilename))
}

// Process validates, stores, and extracts an uploaded file.
// The stored file is removed again if extraction fails.
func (p *Processor) Process(content []byte, originalFilename string) (*Processed, error) {
	if !p.IsAllowed(originalFilename) {
		return nil, fmt.Errorf("%w: %s", ErrExtensionNotAllowed, filepath.Ext(originalFilename))
	}

	storageName := p.UniqueName(originalFilename)
	path := filepath.Join(p.uploadDir, storageName)

	if err := os.WriteFile(path, content, 0640); err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(originalFilename))
	text, err := ExtractText(path, ext)
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			p.logger.Warn("failed to remove file after extraction error", "path", path, "error", rmErr)
		}
		return nil, fmt.Errorf("extracting text from %s: %w", ext, err)
	}

	p.logger.Debug("processed upload",
		"original", originalFilename,
		"stored", storageName,
		"text_length", len(text),
	)

	return &Processed{
		StorageName: storageName,
		Path:        path,
		Text:        text,
	}, nil
}

// Delete removes a stored file. A missing file is reported as false, not
// an error, so callers can treat cleanup as best-effort.
func (p *Processor) Delete(path string) (bool, error) {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("deleting file %s: %w", path, err)
	}
	return true, nil
}
