package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// FileStore persists the credential pair as a small JSON document. Writes go
// through a temp file and rename so a crash mid-write never leaves a
// half-pair on disk.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ CredentialStore = (*FileStore)(nil)

type credentialDocument struct {
	AccessToken  string `json:"auth.access_token,omitempty"`
	RefreshToken string `json:"auth.refresh_token,omitempty"`
}

// NewFileStore returns a store writing to path. The parent directory is
// created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Save(_ context.Context, pair TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to create credential directory")
	}

	doc := credentialDocument{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to encode credentials")
	}

	return s.writeAtomic(data)
}

func (s *FileStore) Load(ctx context.Context) (*TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to read credentials")
	}

	doc := credentialDocument{}
	if err := json.Unmarshal(data, &doc); err != nil {
		// Unparseable files are treated like half-pairs: cleared, not fatal.
		if err := s.remove(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	pair, corrupt := sweepHalfPair(TokenPair{Access: doc.AccessToken, Refresh: doc.RefreshToken})
	if corrupt {
		if err := s.remove(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return pair, nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove()
}

func (s *FileStore) remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to clear credentials")
	}
	return nil
}

func (s *FileStore) writeAtomic(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to stage credential write")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to write credentials")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to set credential permissions")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to finish credential write")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to commit credential write")
	}
	return nil
}
