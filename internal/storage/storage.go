package storage

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
)

// FileStore keeps uploaded feed files.
type FileStore interface {
	Save(filename string, r io.Reader) (key string, checksum string, err error)
	Open(key string) (io.ReadCloser, error)
	Remove(key string) error
}

// LocalStore: files below a root folder on local disk
type LocalStore struct {
	Root string

	create func(name string) (io.WriteCloser, error)
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{Root: root, create: createFile}
}

func createFile(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

// FeedKey builds a collision free key, feeds/<uuid>/<filename>.
func FeedKey(filename string) string {
	return path.Join("feeds", uuid.NewString(), filepath.Base(filename))
}

// Save writes the content and returns its key and md5 checksum.
func (s *LocalStore) Save(filename string, r io.Reader) (string, string, error) {
	key := FeedKey(filename)
	full := s.path(key)

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", "", fmt.Errorf("could not create folder: %w", err)
	}

	create := s.create
	if create == nil {
		create = createFile
	}
	file, err := create(full)
	if err != nil {
		return "", "", fmt.Errorf("could not create file: %w", err)
	}

	hash := md5.New()
	if _, err := io.Copy(io.MultiWriter(file, hash), r); err != nil {
		file.Close()
		s.Remove(key)
		return "", "", fmt.Errorf("could not write file: %w", err)
	}
	// a failed close can mean the data never reached the disk
	if err := file.Close(); err != nil {
		s.Remove(key)
		return "", "", fmt.Errorf("could not close file: %w", err)
	}

	return key, hex.EncodeToString(hash.Sum(nil)), nil
}

func (s *LocalStore) Open(key string) (io.ReadCloser, error) {
	return os.Open(s.path(key))
}

// Remove deletes the file and its per-upload folder. Missing files are not an error.
func (s *LocalStore) Remove(key string) error {
	full := s.path(key)
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	// feeds/<uuid> only ever holds one file
	if err := os.Remove(filepath.Dir(full)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.Root, filepath.FromSlash(key))
}
