package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/rs/xid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"texture-extractor/internal/config"
	"texture-extractor/internal/logger"
)

const (
	AppName    = "texture-extractor"
	AppVersion = "1.0.0"
)

var flags *pflag.FlagSet

var (
	cfgPathFlag     string
	outputFlag      string
	workersFlag     int
	relativeFlag    bool
	distancesFlag   []int
	anglesFlag      []float64
	levelsFlag      int
	symmetricFlag   bool
	normedFlag      bool
	entropyModeFlag string
	decoderFlag     string
	logLevelFlag    string
)

func init() {
	resetFlags()
}

// Explicitly define a method to facilitate tests
func resetFlags() {
	flags = &pflag.FlagSet{}

	flags.StringVarP(&cfgPathFlag, "config", "c", "", "YAML config file overlaid on the environment")
	flags.StringVarP(&outputFlag, "output", "o", config.DefaultOutputPath, "CSV file to write")
	flags.IntVarP(&workersFlag, "workers", "w", 0, "images extracted concurrently (default WORKER_COUNT, else min(NumCPU, 8))")
	flags.BoolVar(&relativeFlag, "match-relative", false, "classify on the path below the corpus root instead of the full path")
	flags.IntSliceVar(&distancesFlag, "distances", []int{1}, "GLCM pixel distances")
	flags.Float64SliceVar(&anglesFlag, "angles", []float64{90}, "GLCM angles in degrees")
	flags.IntVar(&levelsFlag, "levels", 256, "gray levels; must match the image depth")
	flags.BoolVar(&symmetricFlag, "symmetric", true, "count each pixel pair in both orders")
	flags.BoolVar(&normedFlag, "normed", true, "normalize matrices to probabilities")
	flags.StringVar(&entropyModeFlag, "entropy-mode", "summed", "entropy aggregation across offsets: summed, mean or offset-sum")
	flags.StringVar(&decoderFlag, "decoder", config.DecoderOpenCV, "image decoder: opencv or std")
	flags.StringVar(&logLevelFlag, "log-level", "", "debug, info, warn or error (default LOG_LEVEL, else info)")
}

func attachFlags(cmd *cobra.Command, names []string) {
	cmdFlags := cmd.Flags()
	for _, name := range names {
		if flag := flags.Lookup(name); flag != nil {
			cmdFlags.AddFlag(flag)
		} else {
			panic(fmt.Errorf("could not find flag '%s' to attach to command '%s'", name, cmd.Name()))
		}
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     AppName,
		Short:   "Compute GLCM texture features for a labeled image corpus",
		Version: AppVersion,
	}
	root.AddCommand(extractCmd())
	return root
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "extract [corpus-root]",
		Short:        "Walk a corpus and write one feature row per image",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}

			log := logger.NewConsoleLogger(logger.ParseLevel(cfg.App.LogLevel)).
				With("run_id", xid.New().String())

			log.Info("Main", "extraction starting", map[string]interface{}{
				"version":    AppVersion,
				"root":       cfg.Corpus.Root,
				"output":     cfg.Corpus.OutputPath,
				"workers":    cfg.Corpus.Workers,
				"decoder":    cfg.Corpus.Decoder,
				"go_version": runtime.Version(),
			})

			if err := run(cmd.Context(), cfg, log); err != nil {
				log.Error("Main", err, nil)
				return err
			}
			return nil
		},
	}

	attachFlags(cmd, []string{
		"config", "output", "workers", "match-relative", "distances", "angles", "levels",
		"symmetric", "normed", "entropy-mode", "decoder", "log-level",
	})
	return cmd
}

// loadConfig layers environment, config file, flags and the positional root.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if cfgPathFlag != "" {
		if err := cfg.LoadFile(cfgPathFlag); err != nil {
			return nil, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("output") {
		cfg.Corpus.OutputPath = outputFlag
	}
	if changed("workers") {
		cfg.Corpus.Workers = workersFlag
	}
	if changed("match-relative") {
		cfg.Corpus.MatchRelative = relativeFlag
	}
	if changed("distances") {
		cfg.GLCM.Distances = distancesFlag
	}
	if changed("angles") {
		cfg.GLCM.Angles = anglesFlag
	}
	if changed("levels") {
		cfg.GLCM.Levels = levelsFlag
	}
	if changed("symmetric") {
		cfg.GLCM.Symmetric = symmetricFlag
	}
	if changed("normed") {
		cfg.GLCM.Normed = normedFlag
	}
	if changed("entropy-mode") {
		cfg.GLCM.EntropyMode = entropyModeFlag
	}
	if changed("decoder") {
		cfg.Corpus.Decoder = decoderFlag
	}
	if changed("log-level") {
		cfg.App.LogLevel = logLevelFlag
	}
	if len(args) == 1 {
		cfg.Corpus.Root = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
