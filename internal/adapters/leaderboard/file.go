package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/starbot/internal/domain/model"
	"github.com/okian/starbot/pkg/logger"
	"github.com/okian/starbot/pkg/metrics"
)

// FileSource reads a leaderboard JSON payload from disk.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Payload reads the file.
func (s *FileSource) Payload(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	body, err := os.ReadFile(s.path)
	if err != nil {
		metrics.RecordFetchError("file")
		return nil, fmt.Errorf("read leaderboard file %s: %w", s.path, err)
	}
	metrics.RecordFetch("file", time.Since(start).Seconds())
	return body, nil
}

// Fetch reads and decodes the file.
func (s *FileSource) Fetch(ctx context.Context) (model.Snapshot, error) {
	return decode(ctx, s)
}

// FallbackSource tries primary first and falls back to a local file when
// it fails. Successful primary payloads are written to saveFile so the
// next outage has something recent to fall back to.
type FallbackSource struct {
	primary  Payloader
	fallback Payloader
	saveFile string
	logger   logger.Logger
}

// NewFallbackSource wires primary with an optional fallback and save file.
// Either path may be empty.
func NewFallbackSource(primary Payloader, fallbackFile, saveFile string, log logger.Logger) *FallbackSource {
	s := &FallbackSource{primary: primary, saveFile: saveFile, logger: log}
	if fallbackFile != "" {
		s.fallback = NewFileSource(fallbackFile)
	}
	if s.logger == nil {
		s.logger = logger.Discard()
	}
	return s
}

// Payload returns the primary payload, or the fallback payload when primary
// errors or serves something that does not decode.
func (s *FallbackSource) Payload(ctx context.Context) ([]byte, error) {
	body, err := s.primary.Payload(ctx)
	if err == nil {
		if _, perr := model.ParseSnapshot(body); perr != nil {
			err = perr
		}
	}
	if err == nil {
		s.save(ctx, body)
		return body, nil
	}
	if s.fallback == nil || errors.Is(err, context.Canceled) {
		return nil, err
	}

	s.logger.Warn(ctx, "leaderboard fetch failed; using fallback file", logger.Error(err))
	fb, ferr := s.fallback.Payload(ctx)
	if ferr != nil {
		return nil, errors.Join(err, ferr)
	}
	return fb, nil
}

// Fetch decodes the payload chosen by Payload.
func (s *FallbackSource) Fetch(ctx context.Context) (model.Snapshot, error) {
	return decode(ctx, s)
}

func (s *FallbackSource) save(ctx context.Context, body []byte) {
	if s.saveFile == "" {
		return
	}
	if err := writeFileAtomic(s.saveFile, body); err != nil {
		s.logger.Warn(ctx, "failed to save leaderboard payload", logger.String("path", s.saveFile), logger.Error(err))
	}
}

// writeFileAtomic replaces path with data via a temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".leaderboard-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
