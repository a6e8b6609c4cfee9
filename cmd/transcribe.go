package cmd

import (
	"fmt"

	"fftune/internal/config"
	"fftune/internal/transcribe"

	"github.com/spf13/cobra"
)

type transcribeOptions struct {
	detectorOptions
	bufSize   int
	hopSize   int
	output    string
	window    string
	heuristic string
	csvDir    string
	progress  bool
}

func newTranscribeCommand() *cobra.Command {
	o := &transcribeOptions{}
	cmd := &cobra.Command{
		Use:     "transcribe [flags] INPUT",
		Aliases: []string{"audio-to-midi"},
		Short:   "Transcribe a WAV file into a MIDI file",
		Long: `Transcribe a WAV file into a Standard MIDI File.

INPUT is a WAV file, or - to read one from standard input. Multichannel audio
is mixed down to mono and analyzed at the sample rate of the file.`,
		Args: cobra.ExactArgs(1),
		RunE: o.run,
	}

	o.register(cmd)
	flags := cmd.Flags()
	flags.IntVarP(&o.bufSize, "buf-size", "s", config.DefaultBufferSize,
		"Analysis window size in samples (power of two)")
	flags.IntVarP(&o.hopSize, "hop-size", "i", config.DefaultHopSize,
		"New samples per window; must divide the buffer size")
	flags.IntVarP(&o.stiffness, "stiffness", "d", config.DefaultStiffness,
		"Windows a note change must persist before it is committed")
	flags.StringVarP(&o.output, "output", "o", "",
		"Output MIDI file (default INPUT with a .mid extension)")
	flags.StringVar(&o.window, "window", config.DefaultWindow.String(),
		"Window function of the spectral methods")
	flags.StringVar(&o.heuristic, "heuristic", config.DefaultHeuristic.String(),
		"FFT planning: runtime or init")
	flags.StringVar(&o.csvDir, "csv", "",
		"Write every window and its spectrum as CSV into this directory")
	flags.BoolVar(&o.progress, "progress", false,
		"Show a progress bar on stderr")
	return cmd
}

func (o *transcribeOptions) run(cmd *cobra.Command, args []string) error {
	cfg, err := o.load(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("buf-size") {
		cfg.Detector.BufferSize = o.bufSize
	}
	if flags.Changed("hop-size") {
		cfg.Detector.HopSize = o.hopSize
	}
	if err := parseSpectral(cmd, cfg, o.window, o.heuristic); err != nil {
		return err
	}
	if err := cfg.Detector.Validate(); err != nil {
		return err
	}

	input := args[0]
	output := o.output
	if output == "" {
		output = transcribe.DefaultOutput(input)
	}

	job := transcribe.Job{CSVDir: o.csvDir}
	if o.progress {
		job.Progress = cmd.ErrOrStderr()
	}
	stats, err := transcribe.File(cmd.Context(), cfg, input, output, job)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d windows, %s of audio with %s in %s\n",
		output, stats.Windows, stats.Duration, stats.Method, stats.Elapsed)
	return nil
}
