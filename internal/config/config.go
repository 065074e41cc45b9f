package config

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"texture-extractor/internal/classify"
	"texture-extractor/internal/models"
	"texture-extractor/internal/texture"
)

type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

const (
	DecoderOpenCV = "opencv"
	DecoderStd    = "std"

	DefaultOutputPath = "brain_tumor_texture.csv"
)

type AppConfig struct {
	Env      Environment `yaml:"env"`
	LogLevel string      `yaml:"log_level"`
}

type CorpusConfig struct {
	Root       string          `yaml:"root"`
	OutputPath string          `yaml:"output"`
	Workers    int             `yaml:"workers"`
	Decoder    string          `yaml:"decoder"`
	ClassRules []classify.Rule `yaml:"classes"`

	// MatchRelative classifies on the path below Root only.
	MatchRelative bool `yaml:"match_relative"`
}

type GLCMConfig struct {
	Distances []int `yaml:"distances"`
	// Angles are in degrees.
	Angles      []float64 `yaml:"angles"`
	Levels      int       `yaml:"levels"`
	Symmetric   bool      `yaml:"symmetric"`
	Normed      bool      `yaml:"normed"`
	EntropyMode string    `yaml:"entropy_mode"`
}

type Config struct {
	App    AppConfig    `yaml:"app"`
	Corpus CorpusConfig `yaml:"corpus"`
	GLCM   GLCMConfig   `yaml:"glcm"`
}

// Load builds the configuration from defaults, a .env file if present and
// the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := parseEnvironment(getEnv("APP_ENV", "development"))

	distances, err := getEnvIntList("GLCM_DISTANCES", []int{1})
	if err != nil {
		return nil, err
	}
	angles, err := getEnvFloatList("GLCM_ANGLES", []float64{90})
	if err != nil {
		return nil, err
	}

	rules := classify.DefaultRules
	if raw := os.Getenv("CLASS_MAP"); raw != "" {
		rules, err = classify.ParseRules(raw)
		if err != nil {
			return nil, fmt.Errorf("CLASS_MAP: %w", err)
		}
	}

	return &Config{
		App: AppConfig{
			Env:      env,
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Corpus: CorpusConfig{
			Root:       getEnv("CORPUS_ROOT", ""),
			OutputPath: getEnv("OUTPUT_PATH", DefaultOutputPath),
			Workers:    getEnvInt("WORKER_COUNT", calculateDefaultWorkerCount()),
			Decoder:    getEnv("IMAGE_DECODER", DecoderOpenCV),
			ClassRules: append([]classify.Rule(nil), rules...),

			MatchRelative: getEnvBool("CLASSIFY_RELATIVE", false),
		},
		GLCM: GLCMConfig{
			Distances:   distances,
			Angles:      angles,
			Levels:      getEnvInt("GLCM_LEVELS", models.DefaultLevels),
			Symmetric:   getEnvBool("GLCM_SYMMETRIC", true),
			Normed:      getEnvBool("GLCM_NORMED", true),
			EntropyMode: getEnv("ENTROPY_MODE", string(texture.EntropySummed)),
		},
	}, nil
}

// LoadFile overlays the keys present in a YAML file onto c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Corpus.Root == "" {
		return fmt.Errorf("corpus root is required (argument or CORPUS_ROOT)")
	}
	if c.Corpus.OutputPath == "" {
		return fmt.Errorf("output path must not be empty")
	}
	if c.Corpus.Workers < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.Corpus.Workers)
	}
	switch c.Corpus.Decoder {
	case DecoderOpenCV, DecoderStd:
	default:
		return fmt.Errorf("unknown image decoder %q (expected %s or %s)", c.Corpus.Decoder, DecoderOpenCV, DecoderStd)
	}

	if _, err := c.ClassTable(); err != nil {
		return err
	}

	tc, err := c.TextureConfig()
	if err != nil {
		return err
	}
	return tc.Validate()
}

// TextureConfig converts the GLCM section, angles to radians.
func (c *Config) TextureConfig() (texture.Config, error) {
	mode, err := texture.ParseEntropyMode(c.GLCM.EntropyMode)
	if err != nil {
		return texture.Config{}, err
	}

	angles := make([]float64, len(c.GLCM.Angles))
	for i, deg := range c.GLCM.Angles {
		angles[i] = deg * math.Pi / 180
	}

	return texture.Config{
		Distances: append([]int(nil), c.GLCM.Distances...),
		Angles:    angles,
		Levels:    c.GLCM.Levels,
		Symmetric: c.GLCM.Symmetric,
		Normed:    c.GLCM.Normed,
		Entropy:   mode,
	}, nil
}

func (c *Config) ClassTable() (*classify.Table, error) {
	table, err := classify.NewTable(c.Corpus.ClassRules)
	if err != nil {
		return nil, fmt.Errorf("class table: %w", err)
	}
	return table, nil
}

func parseEnvironment(envStr string) Environment {
	env := Environment(strings.ToLower(envStr))

	switch env {
	case Development, Production:
		return env
	default:
		return Development
	}
}

func calculateDefaultWorkerCount() int {
	return min(max(runtime.NumCPU(), 1), 8)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvIntList(key string, defaultValue []int) ([]int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	var out []int
	for _, part := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func getEnvFloatList(key string, defaultValue []float64) ([]float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	var out []float64
	for _, part := range strings.Split(value, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, f)
	}
	return out, nil
}
