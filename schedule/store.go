package schedule

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/jrsteele09/go-publish-agent/internal/utils"
)

// FileStore reads and rewrites the whole schedule document.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Read returns the parsed document and the sha256 of the raw bytes.
// A missing file is ErrNotFound; malformed JSON is ErrConfig.
func (s *FileStore) Read() (Document, [sha256.Size]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Document{}, [sha256.Size]byte{}, fmt.Errorf("[Schedule Read] %w: %s does not exist", apperrors.ErrNotFound, s.path)
	}
	if err != nil {
		return Document{}, [sha256.Size]byte{}, fmt.Errorf("[Schedule Read] failed to read %s: %w", s.path, err)
	}

	sum := sha256.Sum256(data)
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, sum, fmt.Errorf("[Schedule Read] %w: %s: %v", apperrors.ErrConfig, s.path, err)
	}
	return doc, sum, nil
}

// Write replaces the file with the pretty-printed document. Entry keys come out sorted.
func (s *FileStore) Write(doc Document) ([sha256.Size]byte, error) {
	if doc.Schedule == nil {
		doc.Schedule = map[string]Entry{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("[Schedule Write] failed to marshal document: %w", err)
	}
	data = append(data, '\n')
	if err := utils.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("[Schedule Write] %w", err)
	}
	return sha256.Sum256(data), nil
}
