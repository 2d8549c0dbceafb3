// Package snapshot writes the aggregated facilities as one JSON array and
// reads it back for the API.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"carpark_aggregator/internal/domain"
)

type Store struct {
	path string

	mu     sync.Mutex
	gen    string
	cached []domain.Facility
}

func New(path string) *Store { return &Store{path: path} }

func (s *Store) Path() string { return s.path }

// Write replaces the artifact atomically: the array goes to a temp file in the
// same directory which is renamed over the target only after a clean close.
func (s *Store) Write(ctx context.Context, fs []domain.Facility) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if fs == nil {
		fs = []domain.Facility{}
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".carpark-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	if err = enc.Encode(fs); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	log.Ctx(ctx).Info().Str("path", s.path).Int("facilities", len(fs)).Msg("snapshot written")
	return nil
}

// Generation identifies the artifact currently on disk by mtime and size.
func (s *Store) Generation(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	st, err := os.Stat(s.path)
	if err != nil {
		return "", fmt.Errorf("stat snapshot: %w", err)
	}
	return generation(st), nil
}

func generation(st os.FileInfo) string {
	return strconv.FormatInt(st.ModTime().UnixNano(), 36) + "." + strconv.FormatInt(st.Size(), 36)
}

// Load parses the artifact, re-reading it only when its generation changed.
func (s *Store) Load(ctx context.Context) ([]domain.Facility, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	gen := generation(st)
	if s.cached != nil && gen == s.gen {
		return s.cached, nil
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var fs []domain.Facility
	if err := json.Unmarshal(b, &fs); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if fs == nil {
		fs = []domain.Facility{}
	}
	s.cached, s.gen = fs, gen
	return fs, nil
}
