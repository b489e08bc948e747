package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/ppiankov/propval/internal/model"
)

// Downloader fetches the published price-paid CSV for one year. The
// file is written to a temp path and renamed on success, so a partial
// download never masquerades as a dataset.
type Downloader struct {
	httpClient *http.Client
	urlFormat  string
	limiter    *rate.Limiter
	progress   Progress
}

// NewDownloader creates a Downloader. progress receives bytes written
// so far and may be nil.
func NewDownloader(cfg model.DataConfig, progress Progress) *Downloader {
	return &Downloader{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		urlFormat:  cfg.DownloadURL,
		// One progress tick per second keeps output readable for a
		// multi-hundred-megabyte file.
		limiter:  rate.NewLimiter(rate.Limit(1), 1),
		progress: progress,
	}
}

// Download fetches the dataset for year into dest.
func (d *Downloader) Download(ctx context.Context, year int, dest string) error {
	url := fmt.Sprintf(d.urlFormat, year)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp := dest + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	written, err := d.copy(ctx, f, resp.Body)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close temp file: %w", closeErr)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("finalize download: %w", err)
	}

	if d.progress != nil {
		d.progress(int(written))
	}
	return nil
}

// copy streams the body in fixed buffers, reporting progress at most
// once per limiter token.
func (d *Downloader) copy(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 1<<20)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("write: %w", err)
			}
			written += int64(n)

			if d.progress != nil && d.limiter.Allow() {
				d.progress(int(written))
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("read body: %w", readErr)
		}
	}
}
