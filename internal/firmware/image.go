package firmware

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MaxImageSize is the target's hub RAM; larger images cannot be loaded.
const MaxImageSize = 512 * 1024

var (
	// ErrEmptyImage is returned for a zero-length image file.
	ErrEmptyImage = errors.New("image is empty")

	// ErrImageTooLarge is returned for images that do not fit in hub RAM.
	ErrImageTooLarge = errors.New("image exceeds hub RAM")
)

// Image is a target application loaded from disk.
type Image struct {
	Path string
	Data []byte
}

// Name returns the base file name.
func (img *Image) Name() string {
	return filepath.Base(img.Path)
}

// Size returns the image length in bytes.
func (img *Image) Size() int {
	return len(img.Data)
}

// ReadImage reads and validates the image at path.
func ReadImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	img, err := ReadImageReader(f)
	if err != nil {
		return nil, err
	}
	img.Path = path
	return img, nil
}

// ReadImageReader reads and validates an image from r. At most
// MaxImageSize+1 bytes are consumed.
func ReadImageReader(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if err := ValidateImage(data); err != nil {
		return nil, err
	}
	return &Image{Data: data}, nil
}

// ValidateImage checks that data can be sent to the target.
func ValidateImage(data []byte) error {
	switch {
	case len(data) == 0:
		return ErrEmptyImage
	case len(data) > MaxImageSize:
		return fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, MaxImageSize)
	}
	return nil
}
