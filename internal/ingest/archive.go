package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ConfabulousDev/wakalog/internal/storage"
)

// Archiver keeps a copy of a composite record under a name and reports
// where it ended up.
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte) (string, error)
}

// ArchiveName is res_YYYYMMDD.json for one day and
// res_YYYYMMDD-YYYYMMDD.json for a longer range.
func ArchiveName(from, to time.Time) string {
	if from.Format("20060102") == to.Format("20060102") {
		return fmt.Sprintf("res_%s.json", from.Format("20060102"))
	}
	return fmt.Sprintf("res_%s-%s.json", from.Format("20060102"), to.Format("20060102"))
}

// FileArchiver writes archives into a local directory.
type FileArchiver struct {
	Dir string
}

// Archive writes data to Dir/name, creating Dir if needed.
func (a FileArchiver) Archive(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	path := filepath.Join(a.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}
	return path, nil
}

// S3Archiver writes archives to object storage.
type S3Archiver struct {
	Storage *storage.S3Storage
}

// Archive uploads data under name and returns the object key.
func (a S3Archiver) Archive(ctx context.Context, name string, data []byte) (string, error) {
	key, err := a.Storage.Put(ctx, name, data)
	if err != nil {
		return "", err
	}
	return "s3://" + key, nil
}
