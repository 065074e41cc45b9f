package pipeline

import (
	"texture-extractor/internal/models"
)

// Decoder turns encoded image bytes into an 8-bit grayscale image.
type Decoder interface {
	Decode(data []byte) (*models.GrayImage, error)
	Name() string
}

// ImageLoader reads an image file from disk.
type ImageLoader interface {
	Load(path string) (*models.GrayImage, error)
}
