// Package download saves exported result payloads under the timestamped
// name results_<unixms>.<ext>. Payload bytes are written untouched.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawler-console/internal/clock/system"
	"github.com/JakeFAU/crawler-console/internal/config"
	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/hash/sha256"
)

// ErrUnknownProvider is returned by Open for an unsupported provider name.
var ErrUnknownProvider = errors.New("unknown export provider")

// Provider writes one object and returns a URI for it.
type Provider interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Saved describes a written export.
type Saved struct {
	URI      string `json:"uri"`
	Filename string `json:"filename"`
	Bytes    int    `json:"bytes"`
	// SHA256 is the hex digest of the saved payload.
	SHA256 string `json:"sha256"`
}

// Saver names and writes export payloads.
type Saver struct {
	provider Provider
	prefix   string
	clock    crawler.Clock
	hasher   crawler.Hasher
	logger   *zap.Logger
}

// NewSaver builds a Saver. prefix is prepended to every object path.
func NewSaver(provider Provider, prefix string, clock crawler.Clock, logger *zap.Logger) *Saver {
	if clock == nil {
		clock = system.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Saver{
		provider: provider,
		prefix:   strings.Trim(prefix, "/"),
		clock:    clock,
		hasher:   sha256.New(),
		logger:   logger.Named("download"),
	}
}

// Save writes data as results_<unixms>.<ext> for format.
func (s *Saver) Save(ctx context.Context, format crawler.ExportFormat, contentType string, data []byte) (Saved, error) {
	if _, err := crawler.ParseExportFormat(string(format)); err != nil {
		return Saved{}, err
	}
	name := crawler.ExportFilename(format, s.clock.Now())
	objectPath := name
	if s.prefix != "" {
		objectPath = path.Join(s.prefix, name)
	}
	body, sum := s.hasher.Tee(bytes.NewReader(data))
	uri, err := s.provider.PutObject(ctx, objectPath, contentType, body)
	if err != nil {
		return Saved{}, fmt.Errorf("save export %s: %w", name, err)
	}
	digest := sum()
	s.logger.Info("export saved", zap.String("uri", uri), zap.Int("bytes", len(data)), zap.String("sha256", digest))
	return Saved{URI: uri, Filename: name, Bytes: len(data), SHA256: digest}, nil
}

// Open builds a Saver over the provider selected by cfg. The returned close
// function releases any client the provider holds.
func Open(ctx context.Context, cfg config.ExportConfig, clock crawler.Clock, logger *zap.Logger) (*Saver, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(cfg.Provider) {
	case "local", "":
		store, err := NewLocalStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return NewSaver(store, "", clock, logger), noop, nil
	case "gcs":
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create GCS client: %w", err)
		}
		store, err := NewGCSStore(client, cfg.GCSBucket)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return NewSaver(store, cfg.Prefix, clock, logger), client.Close, nil
	case "memory":
		return NewSaver(NewMemoryStore(), "", clock, logger), noop, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
