package texture

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"texture-extractor/internal/models"
)

// Offset is a (distance, angle) displacement between paired pixels.
type Offset struct {
	Distance int
	Angle    float64
}

func NewOffset(distance int, angle float64) Offset {
	return Offset{Distance: distance, Angle: angle}
}

// Displacement returns the row and column step to the neighbor pixel.
// Rows grow downwards, so a positive angle moves up the image.
func (o Offset) Displacement() (dr, dc int) {
	d := float64(o.Distance)
	dc = int(math.RoundToEven(d * math.Cos(o.Angle)))
	dr = -int(math.RoundToEven(d * math.Sin(o.Angle)))
	return dr, dc
}

func (o Offset) String() string {
	return fmt.Sprintf("d=%d,a=%.4g°", o.Distance, o.Angle*180/math.Pi)
}

// CoOccurrenceMatrix holds the joint intensity distribution for one offset.
type CoOccurrenceMatrix struct {
	Offset Offset
	// Pairs counts in-bounds pixel pairs before the symmetric mirror.
	Pairs  int
	Levels int
	P      *mat.Dense
}

func newCoOccurrenceMatrix(offset Offset, levels int) *CoOccurrenceMatrix {
	return &CoOccurrenceMatrix{
		Offset: offset,
		Levels: levels,
		P:      mat.NewDense(levels, levels, nil),
	}
}

func (m *CoOccurrenceMatrix) At(i, j int) float64 {
	return m.P.At(i, j)
}

// Sum returns the total mass of the matrix.
func (m *CoOccurrenceMatrix) Sum() float64 {
	return floats.Sum(m.P.RawMatrix().Data)
}

// IsZero reports whether no pair fell inside the image.
func (m *CoOccurrenceMatrix) IsZero() bool {
	return m.Sum() == 0
}

// RowMarginal sums the joint distribution over its column axis.
func (m *CoOccurrenceMatrix) RowMarginal() []float64 {
	return rowMarginal(m.P)
}

func rowMarginal(p *mat.Dense) []float64 {
	rows, _ := p.Dims()
	marginal := make([]float64, rows)
	for i := 0; i < rows; i++ {
		marginal[i] = floats.Sum(p.RawRowView(i))
	}
	return marginal
}

// CoOccurrenceBuilder accumulates gray-level co-occurrence matrices.
type CoOccurrenceBuilder struct {
	cfg Config
}

func NewCoOccurrenceBuilder(cfg Config) (*CoOccurrenceBuilder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &CoOccurrenceBuilder{cfg: cfg}, nil
}

// Build returns one matrix per configured offset, in Config.Offsets order.
func (b *CoOccurrenceBuilder) Build(img *models.GrayImage) ([]*CoOccurrenceMatrix, error) {
	if img == nil || len(img.Pix) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	if len(img.Pix) != img.Rows*img.Cols {
		return nil, fmt.Errorf("pixel buffer holds %d samples, expected %dx%d", len(img.Pix), img.Cols, img.Rows)
	}
	if img.Levels != b.cfg.Levels {
		return nil, NewConfigError("levels", b.cfg.Levels,
			fmt.Sprintf("image intensity depth is %d", img.Levels))
	}

	offsets := b.cfg.Offsets()
	matrices := make([]*CoOccurrenceMatrix, 0, len(offsets))

	for _, offset := range offsets {
		m, err := b.accumulate(img, offset)
		if err != nil {
			return nil, err
		}
		if b.cfg.Normed {
			normalize(m)
		}
		matrices = append(matrices, m)
	}

	return matrices, nil
}

func (b *CoOccurrenceBuilder) accumulate(img *models.GrayImage, offset Offset) (*CoOccurrenceMatrix, error) {
	levels := b.cfg.Levels
	m := newCoOccurrenceMatrix(offset, levels)
	counts := m.P.RawMatrix().Data
	dr, dc := offset.Displacement()

	for r := 0; r < img.Rows; r++ {
		nr := r + dr
		if nr < 0 || nr >= img.Rows {
			continue
		}
		for c := 0; c < img.Cols; c++ {
			nc := c + dc
			if nc < 0 || nc >= img.Cols {
				continue
			}

			i := int(img.At(r, c))
			j := int(img.At(nr, nc))
			if i >= levels || j >= levels {
				return nil, NewConfigError("levels", levels,
					fmt.Sprintf("pixel value %d at (%d,%d) exceeds level count", max(i, j), c, r))
			}

			counts[i*levels+j]++
			if b.cfg.Symmetric {
				counts[j*levels+i]++
			}
			m.Pairs++
		}
	}

	return m, nil
}

// normalize turns counts into probabilities; an empty matrix stays zero.
func normalize(m *CoOccurrenceMatrix) {
	data := m.P.RawMatrix().Data
	total := floats.Sum(data)
	if total == 0 {
		return
	}
	for k := range data {
		data[k] /= total
	}
}

// SumMatrices adds matrices element-wise into a new dense matrix.
func SumMatrices(matrices []*CoOccurrenceMatrix) (*mat.Dense, error) {
	if len(matrices) == 0 {
		return nil, fmt.Errorf("no matrices to sum")
	}

	levels := matrices[0].Levels
	sum := mat.NewDense(levels, levels, nil)
	for _, m := range matrices {
		if m.Levels != levels {
			return nil, fmt.Errorf("matrix for %s has %d levels, expected %d", m.Offset, m.Levels, levels)
		}
		sum.Add(sum, m.P)
	}
	return sum, nil
}
