package http

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// StoredFile is a finished file that can be fetched by token.
type StoredFile struct {
	Path string
	Name string
	Size int64
}

// FileStore hands out random tokens for finished files. Tokens expire after
// the configured TTL or when the store is full.
type FileStore struct {
	files *expirable.LRU[string, StoredFile]
}

func NewFileStore(size int, ttl time.Duration) *FileStore {
	if size <= 0 {
		size = 1
	}
	return &FileStore{
		files: expirable.NewLRU[string, StoredFile](size, nil, ttl),
	}
}

// Put registers path and returns its token.
func (s *FileStore) Put(path string) (string, StoredFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", StoredFile{}, fmt.Errorf("stat finished file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", StoredFile{}, fmt.Errorf("%s is not a regular file", path)
	}

	file := StoredFile{
		Path: path,
		Name: filepath.Base(path),
		Size: info.Size(),
	}
	token := uuid.NewString()
	s.files.Add(token, file)
	return token, file, nil
}

// Get returns the file for token if it is known and has not expired.
func (s *FileStore) Get(token string) (StoredFile, bool) {
	if _, err := uuid.Parse(token); err != nil {
		return StoredFile{}, false
	}
	return s.files.Get(token)
}

// Len is the number of live tokens.
func (s *FileStore) Len() int {
	return s.files.Len()
}
