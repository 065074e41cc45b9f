package texture

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"texture-extractor/internal/models"
)

const (
	// entropyEpsilon keeps log2 finite on empty marginal bins.
	entropyEpsilon = 1e-15
	// correlationStdFloor marks a degenerate marginal distribution.
	correlationStdFloor = 1e-15
)

// Contrast is Σ (i-j)² P(i,j).
func (m *CoOccurrenceMatrix) Contrast() float64 {
	return m.weightedSum(func(i, j int) float64 {
		d := float64(i - j)
		return d * d
	})
}

// Dissimilarity is Σ |i-j| P(i,j).
func (m *CoOccurrenceMatrix) Dissimilarity() float64 {
	return m.weightedSum(func(i, j int) float64 {
		return math.Abs(float64(i - j))
	})
}

// Homogeneity is Σ P(i,j) / (1 + (i-j)²).
func (m *CoOccurrenceMatrix) Homogeneity() float64 {
	return m.weightedSum(func(i, j int) float64 {
		d := float64(i - j)
		return 1 / (1 + d*d)
	})
}

// ASM is the angular second moment Σ P(i,j)².
func (m *CoOccurrenceMatrix) ASM() float64 {
	var sum float64
	for _, p := range m.P.RawMatrix().Data {
		sum += p * p
	}
	return sum
}

// Energy is √ASM.
func (m *CoOccurrenceMatrix) Energy() float64 {
	return math.Sqrt(m.ASM())
}

// Correlation is the normalized covariance of the row and column indices.
// It is 1 when either marginal has no spread.
func (m *CoOccurrenceMatrix) Correlation() float64 {
	var meanI, meanJ float64
	m.each(func(i, j int, p float64) {
		meanI += float64(i) * p
		meanJ += float64(j) * p
	})

	var varI, varJ, cov float64
	m.each(func(i, j int, p float64) {
		di := float64(i) - meanI
		dj := float64(j) - meanJ
		varI += p * di * di
		varJ += p * dj * dj
		cov += p * di * dj
	})

	stdI := math.Sqrt(varI)
	stdJ := math.Sqrt(varJ)
	if stdI < correlationStdFloor || stdJ < correlationStdFloor {
		return 1
	}
	return cov / (stdI * stdJ)
}

// MarginalEntropy returns -Σ m_k log2(m_k + ε) over the row marginal.
func (m *CoOccurrenceMatrix) MarginalEntropy() float64 {
	return MarginalEntropy(m.RowMarginal())
}

func MarginalEntropy(marginal []float64) float64 {
	var h float64
	for _, v := range marginal {
		h -= v * math.Log2(v+entropyEpsilon)
	}
	return h
}

func (m *CoOccurrenceMatrix) each(fn func(i, j int, p float64)) {
	data := m.P.RawMatrix().Data
	for i := 0; i < m.Levels; i++ {
		row := data[i*m.Levels : (i+1)*m.Levels]
		for j, p := range row {
			if p == 0 {
				continue
			}
			fn(i, j, p)
		}
	}
}

func (m *CoOccurrenceMatrix) weightedSum(weight func(i, j int) float64) float64 {
	var sum float64
	m.each(func(i, j int, p float64) {
		sum += weight(i, j) * p
	})
	return sum
}

// SecondOrder averages the per-offset properties and aggregates entropy
// according to mode.
func SecondOrder(matrices []*CoOccurrenceMatrix, mode EntropyMode) (models.SecondOrder, error) {
	var out models.SecondOrder
	if len(matrices) == 0 {
		return out, NewConfigError("offsets", 0, "no co-occurrence matrices to describe")
	}

	n := float64(len(matrices))
	for _, m := range matrices {
		out.Contrast += m.Contrast() / n
		out.Energy += m.Energy() / n
		out.ASM += m.ASM() / n
		out.Homogeneity += m.Homogeneity() / n
		out.Dissimilarity += m.Dissimilarity() / n
		out.Correlation += m.Correlation() / n
	}

	entropy, err := aggregateEntropy(matrices, mode)
	if err != nil {
		return out, err
	}
	out.Entropy = entropy

	return out, nil
}

func aggregateEntropy(matrices []*CoOccurrenceMatrix, mode EntropyMode) (float64, error) {
	switch mode {
	case EntropySummed, "":
		var summed *mat.Dense
		if len(matrices) == 1 {
			summed = matrices[0].P
		} else {
			var err error
			summed, err = SumMatrices(matrices)
			if err != nil {
				return 0, fmt.Errorf("summing matrices: %w", err)
			}
		}
		return MarginalEntropy(rowMarginal(summed)), nil
	case EntropyMean, EntropyOffsetSum:
		var total float64
		for _, m := range matrices {
			total += m.MarginalEntropy()
		}
		if mode == EntropyMean {
			total /= float64(len(matrices))
		}
		return total, nil
	default:
		return 0, NewConfigError("entropy_mode", mode, "unknown entropy aggregation")
	}
}
