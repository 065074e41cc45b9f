package models

import (
	"fmt"
)

// ClassLabel is the integer class written to the dataset.
type ClassLabel int

const (
	NoTumor    ClassLabel = 0
	Glioma     ClassLabel = 1
	Meningioma ClassLabel = 2
	Pituitary  ClassLabel = 3
)

var classNames = map[ClassLabel]string{
	NoTumor:    "notumor",
	Glioma:     "glioma",
	Meningioma: "meningioma",
	Pituitary:  "pituitary",
}

func (c ClassLabel) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Valid reports whether c belongs to the closed label set.
func (c ClassLabel) Valid() bool {
	_, ok := classNames[c]
	return ok
}

// Feature column names, in output order.
const (
	FeatureMean          = "mean"
	FeatureStd           = "std"
	FeatureSkewness      = "skewness"
	FeatureKurtosis      = "kurtosis"
	FeatureEntropy       = "entropy"
	FeatureContrast      = "contrast"
	FeatureEnergy        = "energy"
	FeatureASM           = "ASM"
	FeatureHomogeneity   = "homogeneity"
	FeatureDissimilarity = "dissimilarity"
	FeatureCorrelation   = "correlation"
)

// FeatureNames is the key set shared by every FeatureVector.
var FeatureNames = []string{
	FeatureMean,
	FeatureStd,
	FeatureSkewness,
	FeatureKurtosis,
	FeatureEntropy,
	FeatureContrast,
	FeatureEnergy,
	FeatureASM,
	FeatureHomogeneity,
	FeatureDissimilarity,
	FeatureCorrelation,
}

// FirstOrder holds statistics computed on raw intensities.
type FirstOrder struct {
	Mean     float64
	Std      float64
	Skewness float64
	Kurtosis float64
}

// SecondOrder holds statistics computed on co-occurrence matrices.
type SecondOrder struct {
	Entropy       float64
	Contrast      float64
	Energy        float64
	ASM           float64
	Homogeneity   float64
	Dissimilarity float64
	Correlation   float64
}

// Features is the full descriptor set of one image.
type Features struct {
	FirstOrder
	SecondOrder
}

// Values returns the features keyed by FeatureNames.
func (f Features) Values() map[string]float64 {
	return map[string]float64{
		FeatureMean:          f.Mean,
		FeatureStd:           f.Std,
		FeatureSkewness:      f.Skewness,
		FeatureKurtosis:      f.Kurtosis,
		FeatureEntropy:       f.Entropy,
		FeatureContrast:      f.Contrast,
		FeatureEnergy:        f.Energy,
		FeatureASM:           f.ASM,
		FeatureHomogeneity:   f.Homogeneity,
		FeatureDissimilarity: f.Dissimilarity,
		FeatureCorrelation:   f.Correlation,
	}
}

// Ordered returns the feature values in FeatureNames order.
func (f Features) Ordered() []float64 {
	values := f.Values()
	out := make([]float64, len(FeatureNames))
	for i, name := range FeatureNames {
		out[i] = values[name]
	}
	return out
}

// FeatureVector is one dataset row.
type FeatureVector struct {
	Features
	ImageName string
	Path      string
	Class     ClassLabel
}

// Dataset is the ordered collection of rows produced by one run.
type Dataset struct {
	Rows []FeatureVector
}

func (d *Dataset) Append(v FeatureVector) {
	d.Rows = append(d.Rows, v)
}

func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Columns returns the exported column names without the index column.
func (d *Dataset) Columns() []string {
	cols := make([]string, 0, len(FeatureNames)+2)
	cols = append(cols, FeatureNames...)
	return append(cols, "image_name", "class")
}

// Shape returns the row and column count of the exported table.
func (d *Dataset) Shape() (int, int) {
	return d.Len(), len(d.Columns())
}

// ClassCounts tallies rows per label.
func (d *Dataset) ClassCounts() map[ClassLabel]int {
	counts := make(map[ClassLabel]int)
	for _, row := range d.Rows {
		counts[row.Class]++
	}
	return counts
}
