package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultFileName is the name of the export written to the home directory.
const DefaultFileName = "convertGraph.xml"

// Destination is an export target (file, S3, etc.).
type Destination interface {
	// Write stores the rendered GraphML document.
	Write(ctx context.Context, data []byte) error
}

// DefaultPath returns ~/convertGraph.xml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, DefaultFileName), nil
}

// FileDestination writes the export to a local path, replacing it atomically.
type FileDestination struct {
	Path string
}

// Write writes data to a temporary file beside Path and renames it into place.
func (d *FileDestination) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(d.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(d.Path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), d.Path); err != nil {
		return fmt.Errorf("replacing %s: %w", d.Path, err)
	}
	return nil
}
