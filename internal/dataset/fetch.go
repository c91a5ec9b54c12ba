package dataset

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/raglens/raglens/pkg/logger"
)

// Fetcher downloads pre-built artifacts (zipped indexes, parquet datasets)
// from fixed public URLs.
type Fetcher struct {
	httpClient *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// FetchFile downloads url to destPath, creating parent directories.
func (f *Fetcher) FetchFile(ctx context.Context, url, destPath string) error {
	logger.Info("Downloading file", zap.String("url", url), zap.String("dest", destPath))

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Info("File downloaded", zap.String("dest", destPath), zap.Int64("bytes", written))

	return nil
}

// FetchArchive downloads a zip archive and extracts it into destDir.
func (f *Fetcher) FetchArchive(ctx context.Context, url, destDir string) error {
	tmp, err := os.CreateTemp("", "raglens-archive-*.zip")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	tmp.Close()

	if err := f.FetchFile(ctx, url, tmp.Name()); err != nil {
		return err
	}

	if err := Unzip(tmp.Name(), destDir); err != nil {
		return fmt.Errorf("failed to extract archive: %w", err)
	}

	logger.Info("Archive extracted", zap.String("dest", destDir))

	return nil
}

// Unzip extracts archivePath into destDir, rejecting entries that would
// escape destDir.
func Unzip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	for _, file := range reader.File {
		if err := extractFile(file, destDir); err != nil {
			return err
		}
	}

	return nil
}

func extractFile(file *zip.File, destDir string) error {
	destPath := filepath.Join(destDir, file.Name)

	// Guard against zip entries like "../../etc/passwd".
	if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry %q escapes destination", file.Name)
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(destPath, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %q: %w", file.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", destPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to extract %q: %w", file.Name, err)
	}

	return nil
}
