package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"texture-extractor/internal/models"
)

// StdDecoder decodes with the image package and the golang.org/x/image
// codecs, then converts to luma the way 8-bit "L" conversion does it.
type StdDecoder struct{}

func NewStdDecoder() *StdDecoder {
	return &StdDecoder{}
}

func (d *StdDecoder) Name() string {
	return "std"
}

func (d *StdDecoder) Decode(data []byte) (*models.GrayImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image with standard library: %w", err)
	}

	gray, err := ToGrayImage(img)
	if err != nil {
		return nil, err
	}
	gray.Format = format
	return gray, nil
}

// ToGrayImage reduces any decoded image to 8-bit grayscale. 16-bit
// grayscale sources are rejected with a *models.DepthError.
func ToGrayImage(img image.Image) (*models.GrayImage, error) {
	bounds := img.Bounds()
	out, err := models.NewGrayImage(bounds.Dy(), bounds.Dx())
	if err != nil {
		return nil, err
	}

	switch typed := img.(type) {
	case *image.Gray:
		for y := 0; y < out.Rows; y++ {
			start := typed.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(out.Pix[y*out.Cols:(y+1)*out.Cols], typed.Pix[start:start+out.Cols])
		}
		return out, nil
	case *image.Gray16:
		return nil, &models.DepthError{Levels: 1 << 16}
	}

	for y := 0; y < out.Rows; y++ {
		for x := 0; x < out.Cols; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			out.Set(y, x, luma(c.R, c.G, c.B))
		}
	}

	return out, nil
}

// luma applies ITU-R 601-2 weights in 16-bit fixed point with rounding.
func luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*19595 + uint32(g)*38470 + uint32(b)*7471 + 0x8000) >> 16)
}
