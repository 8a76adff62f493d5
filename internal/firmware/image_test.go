package firmware

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blink.bin")
	require.NoError(t, os.WriteFile(path, []byte{0xde, 0xad, 0xbe, 0xef}, 0o644))

	img, err := ReadImage(path)
	require.NoError(t, err)
	assert.Equal(t, "blink.bin", img.Name())
	assert.Equal(t, 4, img.Size())

	_, err = ReadImage(filepath.Join(dir, "missing.bin"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadImageReaderLimits(t *testing.T) {
	_, err := ReadImageReader(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = ReadImageReader(bytes.NewReader(make([]byte, MaxImageSize+10)))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	img, err := ReadImageReader(bytes.NewReader(make([]byte, MaxImageSize)))
	require.NoError(t, err)
	assert.Equal(t, MaxImageSize, img.Size())
}

func TestTransferProgress(t *testing.T) {
	p := TransferProgress{BytesSent: 256, TotalBytes: 1024}
	assert.InDelta(t, 0.25, p.Percent(), 1e-9)
	assert.Zero(t, TransferProgress{}.Percent())

	assert.Equal(t, 0, Chunks(0, 1024))
	assert.Equal(t, 1, Chunks(1, 1024))
	assert.Equal(t, 1, Chunks(1024, 1024))
	assert.Equal(t, 2, Chunks(1025, 1024))
}
