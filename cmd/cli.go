// Package cmd builds the fftune command line.
package cmd

import (
	"context"
	"fmt"

	"fftune/internal/audio"
	"fftune/internal/config"
	"fftune/internal/fft"
	"fftune/internal/log"
	"fftune/pkg/build"

	"github.com/spf13/cobra"
)

// Execute runs the command line with args, excluding the program name.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand returns the fftune command tree.
func NewRootCommand() *cobra.Command {
	buildInfo := build.GetBuildFlags()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", buildInfo.Version, buildInfo.Commit, buildInfo.Time),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddCommand(
		newTranscribeCommand(),
		newLiveCommand(),
		&cobra.Command{
			Use:   "list",
			Short: "List available audio input devices",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := audio.Initialize(); err != nil {
					return err
				}
				defer audio.Terminate()
				return audio.ListDevices(cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "methods",
			Short: "List the pitch detection methods",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				for _, m := range config.Methods() {
					suffix := ""
					if m == config.DefaultMethod {
						suffix = " (default)"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", m, suffix)
				}
			},
		},
	)
	return rootCmd
}

// detectorOptions are the flags shared by the commands that run a detector.
// They override the configuration file only when given explicitly.
type detectorOptions struct {
	configPath   string
	method       string
	polyphony    int
	stiffness    int
	externalPath string
	verbose      bool
}

func (o *detectorOptions) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.configPath, "config", "",
		"Path to a YAML configuration file (default config.yaml or fftune.yaml if present)")
	flags.StringVarP(&o.method, "method", "m", config.DefaultMethod.String(),
		"Pitch detection method, see 'methods'")
	flags.IntVarP(&o.polyphony, "polyphony", "p", config.DefaultMaxPolyphony,
		"Maximum number of simultaneous notes")
	flags.StringVarP(&o.externalPath, "external-path", "e", "",
		"Instrument WAV file rendered by fftune-sfizz")
	flags.BoolVarP(&o.verbose, "verbose", "v", config.DefaultVerbosity,
		"Show verbose output")
}

// load reads the configuration and applies the explicitly set flags.
func (o *detectorOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("method") {
		m, err := config.ParseMethod(o.method)
		if err != nil {
			return nil, err
		}
		cfg.Detector.Method = m
	}
	if flags.Changed("polyphony") {
		cfg.Detector.MaxPolyphony = o.polyphony
	}
	if flags.Changed("stiffness") {
		cfg.Scheduler.Stiffness = o.stiffness
	}
	if flags.Changed("external-path") {
		cfg.Detector.ExternalPath = o.externalPath
	}
	if o.verbose {
		cfg.Detector.Verbose = true
	}
	log.Configure(cfg.LogLevel, o.verbose || cfg.Debug)
	return cfg, nil
}

// parseSpectral applies --window and --heuristic when given.
func parseSpectral(cmd *cobra.Command, cfg *config.Config, window, heuristic string) error {
	flags := cmd.Flags()
	if flags.Changed("window") {
		w, err := fft.ParseWindow(window)
		if err != nil {
			return err
		}
		cfg.Detector.Window = w
	}
	if flags.Changed("heuristic") {
		h, err := fft.ParseHeuristic(heuristic)
		if err != nil {
			return err
		}
		cfg.Detector.Heuristic = h
	}
	return nil
}
