// Package uploads stores processed item images on disk under random names.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/erazemk/najdeno/internal/imaging"
)

var (
	// ErrInvalidName is returned for names that were not produced by Save.
	ErrInvalidName = errors.New("invalid upload name")
	// ErrInvalidImage is returned when an upload cannot be processed as an image.
	ErrInvalidImage = errors.New("invalid image")
)

const ext = ".jpg"

// Dir is a directory of stored images.
type Dir struct {
	Path string
}

// New returns a Dir rooted at path, creating it if needed.
func New(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &Dir{Path: path}, nil
}

// Save processes an uploaded image and writes it under a fresh name,
// which it returns.
func (d *Dir) Save(r io.Reader) (string, error) {
	result, err := imaging.Process(r)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	name := uuid.NewString() + ext
	tmp, err := os.CreateTemp(d.Path, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(result.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing image: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.Path, name)); err != nil {
		return "", fmt.Errorf("storing image: %w", err)
	}
	return name, nil
}

// Open returns the stored image with the given name.
func (d *Dir) Open(name string) (*os.File, error) {
	if !ValidName(name) {
		return nil, ErrInvalidName
	}
	return os.Open(filepath.Join(d.Path, name))
}

// Remove deletes a stored image. Missing files are not an error.
func (d *Dir) Remove(name string) error {
	if !ValidName(name) {
		return ErrInvalidName
	}
	err := os.Remove(filepath.Join(d.Path, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing image: %w", err)
	}
	return nil
}

// ValidName reports whether name has the form produced by Save.
func ValidName(name string) bool {
	base, ok := strings.CutSuffix(name, ext)
	if !ok {
		return false
	}
	_, err := uuid.Parse(base)
	return err == nil && len(base) == 36
}
