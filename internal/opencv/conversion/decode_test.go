package conversion

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"texture-extractor/internal/models"
	"texture-extractor/internal/opencv/memory"
	"texture-extractor/internal/pipeline"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestDecoder() (*Decoder, *memory.Manager) {
	mem := memory.NewManager(memory.DefaultMaxBytes)
	return NewDecoder(mem), mem
}

func assertNoLiveMats(t *testing.T, mem *memory.Manager) {
	t.Helper()
	stats := mem.GetStats()
	assert.Equal(t, int64(0), stats.ActiveMats)
	assert.Equal(t, int64(0), stats.InUse())
}

func TestDecodeGrayMatchesStdDecoder(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 7, 5))
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 37)
	}
	data := encodePNG(t, src)

	dec, mem := newTestDecoder()
	img, err := dec.Decode(data)
	require.NoError(t, err)
	assertNoLiveMats(t, mem)
	assert.Greater(t, mem.GetStats().TotalAllocated, int64(0))

	want, err := pipeline.NewStdDecoder().Decode(data)
	require.NoError(t, err)

	assert.Equal(t, 5, img.Rows)
	assert.Equal(t, 7, img.Cols)
	assert.Equal(t, models.DefaultLevels, img.Levels)
	assert.Equal(t, "opencv", img.Format)
	assert.Equal(t, want.Pix, img.Pix)
}

func TestDecodeColorReducedToLuma(t *testing.T) {
	opaque := image.NewRGBA(image.Rect(0, 0, 4, 3))
	translucent := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	colors := []color.RGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
		{R: 90, G: 90, B: 90, A: 255},
		{R: 200, G: 40, B: 120, A: 255},
		{R: 12, G: 250, B: 3, A: 255},
	}
	for i := 0; i < 12; i++ {
		c := colors[i%len(colors)]
		opaque.SetRGBA(i%4, i/4, c)
		translucent.SetNRGBA(i%4, i/4, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 128})
	}

	for name, src := range map[string]image.Image{"bgr": opaque, "bgra": translucent} {
		t.Run(name, func(t *testing.T) {
			data := encodePNG(t, src)

			dec, mem := newTestDecoder()
			img, err := dec.Decode(data)
			require.NoError(t, err)
			assertNoLiveMats(t, mem)

			want, err := pipeline.NewStdDecoder().Decode(data)
			require.NoError(t, err)
			require.Len(t, img.Pix, len(want.Pix))

			for i := range want.Pix {
				assert.InDelta(t, float64(want.Pix[i]), float64(img.Pix[i]), 1, "pixel %d", i)
			}
			// Neutral gray survives both weightings unchanged.
			assert.Equal(t, uint8(90), img.At(0, 3))
		})
	}
}

func TestDecodeSixteenBitIsDepthError(t *testing.T) {
	src := image.NewGray16(image.Rect(0, 0, 4, 4))
	for i := 0; i < 16; i++ {
		src.SetGray16(i%4, i/4, color.Gray16{Y: uint16(i * 4000)})
	}

	dec, mem := newTestDecoder()
	_, err := dec.Decode(encodePNG(t, src))

	var depthErr *models.DepthError
	require.True(t, errors.As(err, &depthErr), "got %v", err)
	assert.Equal(t, 1<<16, depthErr.Levels)
	assertNoLiveMats(t, mem)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	dec, mem := newTestDecoder()

	_, err := dec.Decode([]byte("definitely not an image"))
	assert.Error(t, err)

	_, err = dec.Decode(nil)
	assert.Error(t, err)

	assertNoLiveMats(t, mem)
	assert.Equal(t, int64(0), mem.GetStats().PeakActiveMats)
}
