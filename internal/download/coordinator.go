package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ErlanBelekov/answerkey-relay/internal/domain"
	"github.com/ErlanBelekov/answerkey-relay/internal/metrics"
	"github.com/google/uuid"
)

const filePrefix = "answer-key-"

// TokenRunner runs a provider call with a valid token, refreshing and
// retrying once on rejection. Satisfied by *token.Manager.
type TokenRunner interface {
	Do(ctx context.Context, fn func(ctx context.Context, t domain.Token) error) error
}

// DocumentSource is the provider subset used for downloads.
type DocumentSource interface {
	DocumentURL(ctx context.Context, accessToken, entryID string) (string, error)
	Download(ctx context.Context, locator string, w io.Writer) (int64, error)
}

// Coordinator fetches answer-key PDFs into single-use temporary files.
type Coordinator struct {
	tokens TokenRunner
	source DocumentSource
	dir    string
	logger *slog.Logger
}

func NewCoordinator(tokens TokenRunner, source DocumentSource, dir string, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		tokens: tokens,
		source: source,
		dir:    dir,
		logger: logger.With("component", "download"),
	}
}

// Document is a downloaded file owned by the caller, who must call Release
// on every path once delivery has been attempted.
type Document struct {
	Path     string
	FileName string
	Size     int64

	logger  *slog.Logger
	release sync.Once
	err     error
}

func (d *Document) Open() (*os.File, error) {
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrFileIO, d.Path, err)
	}
	return f, nil
}

// Release deletes the file. Safe to call more than once.
func (d *Document) Release() error {
	d.release.Do(func() {
		if err := os.Remove(d.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			d.err = fmt.Errorf("%w: remove %s: %v", domain.ErrFileIO, d.Path, err)
			d.logger.Error("release document", "path", d.Path, "error", err)
		}
	})
	return d.err
}

// Fetch resolves the entry's document locator with an authenticated call
// and streams the PDF to a new temporary file. Any failure after the file
// is created removes it before returning.
func (c *Coordinator) Fetch(ctx context.Context, entry domain.Entry) (*Document, error) {
	var locator string
	err := c.tokens.Do(ctx, func(ctx context.Context, t domain.Token) error {
		loc, err := c.source.DocumentURL(ctx, t.Value, entry.ID)
		if err != nil {
			return err
		}
		locator = loc
		return nil
	})
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("resolve document %s: %w", entry.ID, err)
	}

	path := filepath.Join(c.dir, filePrefix+uuid.NewString()+".pdf")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("%w: create %s: %v", domain.ErrFileIO, path, err)
	}

	n, err := c.source.Download(ctx, locator, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: close %s: %v", domain.ErrFileIO, path, closeErr)
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			c.logger.ErrorContext(ctx, "remove partial download", "path", path, "error", rmErr)
		}
		metrics.DownloadsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("download document %s: %w", entry.ID, err)
	}

	metrics.DownloadsTotal.WithLabelValues("success").Inc()
	metrics.DownloadBytes.Observe(float64(n))
	c.logger.InfoContext(ctx, "document downloaded", "entry_id", entry.ID, "bytes", n)

	return &Document{
		Path:     path,
		FileName: FileName(entry),
		Size:     n,
		logger:   c.logger,
	}, nil
}

// CleanupOrphans removes downloads older than maxAge that were never
// released, e.g. after a crash mid-delivery.
func (c *Coordinator) CleanupOrphans(maxAge time.Duration) (int, error) {
	matches, err := filepath.Glob(filepath.Join(c.dir, filePrefix+"*.pdf"))
	if err != nil {
		return 0, fmt.Errorf("list downloads: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("remove orphaned download", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

var fileNameReplacer = strings.NewReplacer("/", "-", "\\", "-", ":", "-", "\n", " ", "\r", " ")

// FileName is the name the user sees: "<period> - <exam name>.pdf".
func FileName(e domain.Entry) string {
	name := strings.TrimSpace(e.ExamName)
	if e.Period != "" {
		name = strings.TrimSpace(e.Period) + " - " + name
	}
	return fileNameReplacer.Replace(name) + ".pdf"
}
