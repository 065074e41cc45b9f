package conversion

import (
	"fmt"

	"texture-extractor/internal/models"
	"texture-extractor/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ConvertToGrayscale converts multi-channel images to single-channel grayscale
func ConvertToGrayscale(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateGrayscaleSource(src); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	dst := gocv.NewMat()
	srcMat := src.GetMat()

	switch src.Channels() {
	case 1:
		srcMat.CopyTo(&dst)
	case 3:
		gocv.CvtColor(srcMat, &dst, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(srcMat, &dst, gocv.ColorBGRAToGray)
	default:
		dst.Close()
		return nil, fmt.Errorf("unsupported channel count: %d", src.Channels())
	}

	return safe.Adopt(dst, src.Tag()+"_gray")
}

// MatToGrayImage copies a single-channel 8-bit Mat into a GrayImage.
func MatToGrayImage(src *safe.Mat) (*models.GrayImage, error) {
	if err := safe.ValidateMatForOperation(src, "Mat to gray image conversion"); err != nil {
		return nil, err
	}

	if src.Channels() != 1 || src.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("expected 8-bit single-channel Mat, got type %d with %d channels",
			int(src.Type()), src.Channels())
	}

	img, err := models.NewGrayImage(src.Rows(), src.Cols())
	if err != nil {
		return nil, err
	}

	data, err := src.Pixels()
	if err != nil {
		return nil, err
	}
	if len(data) != len(img.Pix) {
		return nil, fmt.Errorf("Mat %s holds %d samples, expected %dx%d", src.Tag(), len(data), img.Cols, img.Rows)
	}

	copy(img.Pix, data)
	return img, nil
}
