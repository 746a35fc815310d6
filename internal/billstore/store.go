// Package billstore archives the carrier's PDF statements, one per billing
// period.
package billstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	reconciledomain "github.com/smallbiznis/vpnbill/internal/reconcile/domain"
)

var ErrBillNotFound = errors.New("no statement archived for period")

// SavedBill describes an archived statement.
type SavedBill struct {
	Period string `json:"period"`
	Path   string `json:"path"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
}

// Store persists carrier statements. Saving the same period twice replaces
// the earlier file.
type Store interface {
	Save(ctx context.Context, period string, r io.Reader) (*SavedBill, error)
	Open(ctx context.Context, period string) (io.ReadCloser, error)
	URL(period string) string
}

type Config struct {
	BaseDir string
	BaseURL string
}

type fsStore struct {
	cfg Config
	log *zap.Logger
}

// NewFS opens a filesystem-backed store rooted at cfg.BaseDir, creating
// the directory if needed.
func NewFS(cfg Config, log *zap.Logger) (Store, error) {
	if cfg.BaseDir == "" {
		cfg.BaseDir = "media"
	}
	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create statement directory %s: %w", cfg.BaseDir, err)
	}
	return &fsStore{cfg: cfg, log: log.Named("billstore")}, nil
}

func (s *fsStore) Save(ctx context.Context, period string, r io.Reader) (*SavedBill, error) {
	if err := reconciledomain.ValidatePeriod(period); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.path(period)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create statement file: %w", err)
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write statement file: %w", err)
	}

	s.log.Info("statement archived",
		zap.String("period", period),
		zap.String("path", path),
		zap.Int64("size", size),
	)
	return &SavedBill{
		Period: period,
		Path:   path,
		URL:    s.URL(period),
		Size:   size,
	}, nil
}

func (s *fsStore) Open(ctx context.Context, period string) (io.ReadCloser, error) {
	if err := reconciledomain.ValidatePeriod(period); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path(period))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrBillNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open statement file: %w", err)
	}
	return f, nil
}

func (s *fsStore) URL(period string) string {
	return strings.TrimSuffix(s.cfg.BaseURL, "/") + "/" + period + ".pdf"
}

func (s *fsStore) path(period string) string {
	return filepath.Join(s.cfg.BaseDir, period+".pdf")
}
