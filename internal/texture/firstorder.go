package texture

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"texture-extractor/internal/models"
)

// momentResolution is the relative tolerance under which the second
// central moment is treated as zero.
const momentResolution = 1e-15

// FirstOrder computes mean, population std, g1 skewness and excess kurtosis.
// Skewness and kurtosis are NaN when the samples have no spread.
func FirstOrder(x []float64) models.FirstOrder {
	if len(x) == 0 {
		nan := math.NaN()
		return models.FirstOrder{Mean: nan, Std: nan, Skewness: nan, Kurtosis: nan}
	}

	mean, std := stat.PopMeanStdDev(x, nil)
	out := models.FirstOrder{
		Mean: mean,
		Std:  std,
	}

	m2 := stat.Moment(2, x, nil)
	if m2 <= math.Pow(momentResolution*mean, 2) {
		out.Skewness = math.NaN()
		out.Kurtosis = math.NaN()
		return out
	}

	m3 := stat.Moment(3, x, nil)
	m4 := stat.Moment(4, x, nil)
	out.Skewness = m3 / math.Pow(m2, 1.5)
	out.Kurtosis = m4/(m2*m2) - 3
	return out
}
