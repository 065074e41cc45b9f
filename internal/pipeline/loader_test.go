package pipeline

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"texture-extractor/internal/logger"
	"texture-extractor/internal/models"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestStdDecoderGray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 3, 2))
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 40)
	}

	img, err := NewStdDecoder().Decode(encodePNG(t, src))
	require.NoError(t, err)

	assert.Equal(t, 2, img.Rows)
	assert.Equal(t, 3, img.Cols)
	assert.Equal(t, models.DefaultLevels, img.Levels)
	assert.Equal(t, src.Pix, img.Pix)
	assert.Equal(t, "png", img.Format)
}

func TestStdDecoderColorToLuma(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 0, B: 0, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	img, err := NewStdDecoder().Decode(encodePNG(t, src))
	require.NoError(t, err)

	assert.Equal(t, uint8(76), img.At(0, 0))
	assert.Equal(t, uint8(255), img.At(0, 1))
}

func TestStdDecoderRejectsSixteenBit(t *testing.T) {
	src := image.NewGray16(image.Rect(0, 0, 2, 2))
	src.SetGray16(1, 1, color.Gray16{Y: 40000})

	_, err := NewStdDecoder().Decode(encodePNG(t, src))
	var depthErr *models.DepthError
	require.True(t, errors.As(err, &depthErr))
	assert.Equal(t, 65536, depthErr.Levels)
}

func TestLuma(t *testing.T) {
	assert.Equal(t, uint8(0), luma(0, 0, 0))
	assert.Equal(t, uint8(255), luma(255, 255, 255))
	assert.Equal(t, uint8(150), luma(0, 255, 0))
	assert.Equal(t, uint8(29), luma(0, 0, 255))
}

func TestLoaderErrors(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(NewStdDecoder(), logger.NewNop())

	_, err := loader.Load(filepath.Join(dir, "missing.png"))
	assert.True(t, errors.Is(err, ErrUnreadableImage))

	garbage := writeFile(t, dir, "broken.jpg", []byte("not an image"))
	_, err = loader.Load(garbage)
	assert.True(t, errors.Is(err, ErrUnreadableImage))

	deep := writeFile(t, dir, "deep.png", encodePNG(t, image.NewGray16(image.Rect(0, 0, 1, 1))))
	_, err = loader.Load(deep)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnreadableImage))
	var depthErr *models.DepthError
	assert.True(t, errors.As(err, &depthErr))
}

func TestLoaderFormat(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(NewStdDecoder(), logger.NewNop())

	path := writeFile(t, dir, "scan.data", encodePNG(t, image.NewGray(image.Rect(0, 0, 4, 4))))
	img, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "png", img.Format)
	assert.Equal(t, 4, img.Rows)
}
