package conversion

import (
	"fmt"

	"texture-extractor/internal/models"
	"texture-extractor/internal/opencv/memory"
	"texture-extractor/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Decoder decodes encoded image bytes with OpenCV and reduces them to
// 8-bit grayscale. Every intermediate Mat is accounted for by the memory
// manager until it is released.
type Decoder struct {
	memory *memory.Manager
}

func NewDecoder(mem *memory.Manager) *Decoder {
	if mem == nil {
		mem = memory.NewManager(memory.DefaultMaxBytes)
	}
	return &Decoder{memory: mem}
}

func (d *Decoder) Memory() *memory.Manager {
	return d.memory
}

func (d *Decoder) Name() string {
	return "opencv"
}

func (d *Decoder) Decode(data []byte) (*models.GrayImage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no image data")
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadUnchanged)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image with OpenCV: %w", err)
	}

	decoded, err := safe.Adopt(mat, "decoded")
	if err != nil {
		return nil, fmt.Errorf("failed to decode image with OpenCV: %w", err)
	}
	if err := d.memory.Track(decoded); err != nil {
		return nil, err
	}
	defer d.memory.Release(decoded)

	if !decoded.Is8Bit() {
		if levels := levelsOf(decoded.Type()); levels > 0 {
			return nil, &models.DepthError{Levels: levels}
		}
		return nil, fmt.Errorf("unsupported MatType %d", int(decoded.Type()))
	}

	gray, err := ConvertToGrayscale(decoded)
	if err != nil {
		return nil, err
	}
	if err := d.memory.Track(gray); err != nil {
		return nil, err
	}
	defer d.memory.Release(gray)

	img, err := MatToGrayImage(gray)
	if err != nil {
		return nil, err
	}
	img.Format = "opencv"
	return img, nil
}

func levelsOf(matType gocv.MatType) int {
	switch matType {
	case gocv.MatTypeCV16UC1, gocv.MatTypeCV16UC3, gocv.MatTypeCV16UC4,
		gocv.MatTypeCV16SC1, gocv.MatTypeCV16SC3, gocv.MatTypeCV16SC4:
		return 1 << 16
	default:
		return 0
	}
}
