package models

import (
	"fmt"
)

// DefaultLevels is the intensity depth of an 8-bit grayscale image.
const DefaultLevels = 256

// GrayImage is a single-channel image held as row-major intensity samples.
type GrayImage struct {
	Rows   int
	Cols   int
	Levels int
	Pix    []uint8
	Format string
}

// NewGrayImage allocates a zeroed image of the given size with 256 levels.
func NewGrayImage(rows, cols int) (*GrayImage, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %dx%d", cols, rows)
	}

	return &GrayImage{
		Rows:   rows,
		Cols:   cols,
		Levels: DefaultLevels,
		Pix:    make([]uint8, rows*cols),
	}, nil
}

// GrayImageFromRows builds an image from a rectangular slice of rows.
func GrayImageFromRows(rows [][]uint8) (*GrayImage, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("image has no pixels")
	}

	img, err := NewGrayImage(len(rows), len(rows[0]))
	if err != nil {
		return nil, err
	}

	for r, row := range rows {
		if len(row) != img.Cols {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", r, len(row), img.Cols)
		}
		copy(img.Pix[r*img.Cols:], row)
	}

	return img, nil
}

func (g *GrayImage) At(row, col int) uint8 {
	return g.Pix[row*g.Cols+col]
}

func (g *GrayImage) Set(row, col int, value uint8) {
	g.Pix[row*g.Cols+col] = value
}

// Contains reports whether (row, col) lies inside the image.
func (g *GrayImage) Contains(row, col int) bool {
	return row >= 0 && row < g.Rows && col >= 0 && col < g.Cols
}

// Float64s returns the flattened pixels as float64 samples.
func (g *GrayImage) Float64s() []float64 {
	out := make([]float64, len(g.Pix))
	for i, v := range g.Pix {
		out[i] = float64(v)
	}
	return out
}
