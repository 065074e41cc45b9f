package texture

import (
	"fmt"
	"math"
	"strings"

	"texture-extractor/internal/models"
)

// EntropyMode selects how marginal entropy is aggregated across offsets.
type EntropyMode string

const (
	// EntropySummed sums every offset's matrix element-wise and takes the
	// entropy of the summed matrix's row marginal once.
	EntropySummed EntropyMode = "summed"
	// EntropyMean averages the per-offset marginal entropies.
	EntropyMean EntropyMode = "mean"
	// EntropyOffsetSum adds up the per-offset marginal entropies.
	EntropyOffsetSum EntropyMode = "offset-sum"
)

func ParseEntropyMode(s string) (EntropyMode, error) {
	mode := EntropyMode(strings.ToLower(strings.TrimSpace(s)))
	switch mode {
	case EntropySummed, EntropyMean, EntropyOffsetSum:
		return mode, nil
	case "":
		return EntropySummed, nil
	default:
		return "", NewConfigError("entropy_mode", s, "expected summed, mean or offset-sum")
	}
}

// Config drives the co-occurrence builder and the descriptor calculator.
type Config struct {
	Distances []int
	// Angles are in radians.
	Angles    []float64
	Levels    int
	Symmetric bool
	Normed    bool
	Entropy   EntropyMode
}

// DefaultConfig is one vertical offset of one pixel over 256 levels.
func DefaultConfig() Config {
	return Config{
		Distances: []int{1},
		Angles:    []float64{math.Pi / 2},
		Levels:    models.DefaultLevels,
		Symmetric: true,
		Normed:    true,
		Entropy:   EntropySummed,
	}
}

func (c Config) Validate() error {
	if len(c.Distances) == 0 {
		return NewConfigError("distances", c.Distances, "at least one distance is required")
	}
	if len(c.Angles) == 0 {
		return NewConfigError("angles", c.Angles, "at least one angle is required")
	}
	for _, d := range c.Distances {
		if d <= 0 {
			return NewConfigError("distances", d, "distance must be positive")
		}
	}
	for _, a := range c.Angles {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return NewConfigError("angles", a, "angle must be finite")
		}
	}
	if c.Levels < 2 || c.Levels > models.DefaultLevels {
		return NewConfigError("levels", c.Levels, fmt.Sprintf("levels must be within 2..%d", models.DefaultLevels))
	}
	if _, err := ParseEntropyMode(string(c.Entropy)); err != nil {
		return err
	}
	return nil
}

// Offsets is the cartesian product of distances and angles, distances outer.
func (c Config) Offsets() []Offset {
	offsets := make([]Offset, 0, len(c.Distances)*len(c.Angles))
	for _, d := range c.Distances {
		for _, a := range c.Angles {
			offsets = append(offsets, NewOffset(d, a))
		}
	}
	return offsets
}

// ConfigError reports a setup mistake that must abort the run.
type ConfigError struct {
	Field   string
	Value   interface{}
	Message string
}

func NewConfigError(field string, value interface{}, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

func (ce *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for '%s' with value '%v': %s",
		ce.Field, ce.Value, ce.Message)
}
