package cmd

import (
	"errors"
	"fmt"

	"fftune/internal/audio"
	"fftune/internal/config"
	"fftune/internal/log"
	"fftune/internal/midi"
	"fftune/internal/pitch"
	"fftune/internal/synth"
	"fftune/internal/transport"
	"fftune/internal/transport/udp"
	"fftune/internal/tui"

	"github.com/spf13/cobra"
)

type liveOptions struct {
	detectorOptions
	pick       bool
	device     int
	sampleRate float64
	record     bool
	recordDir  string
	gate       float64
	websocket  string
	udpTarget  string
	output     string
}

func newLiveCommand() *cobra.Command {
	o := &liveOptions{}
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Detect notes from an audio input device in real time",
		Long: `Detect notes from an audio input device in real time.

Every analyzed window is published as a note frame on the configured
transports. Finished notes are logged and, with --output, written to a MIDI
file when the command is interrupted.`,
		Args: cobra.NoArgs,
		RunE: o.run,
	}

	o.register(cmd)
	flags := cmd.Flags()
	flags.BoolVar(&o.pick, "select", false,
		"Choose the device, sample rate and method interactively")
	flags.IntVar(&o.device, "device", config.DefaultDeviceID,
		"Input device ID, see 'list'; -1 for the system default")
	flags.Float64Var(&o.sampleRate, "sample-rate", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntVar(&o.stiffness, "stiffness", config.DefaultStiffness,
		"Windows a note change must persist before it is committed")
	flags.BoolVarP(&o.record, "record", "r", false,
		"Record the input stream to a WAV file")
	flags.StringVar(&o.recordDir, "record-dir", config.DefaultRecordingDir,
		"Directory for recordings")
	flags.Float64Var(&o.gate, "gate", config.DefaultGateThreshold,
		"Enable the noise gate at this peak amplitude (0..1)")
	flags.StringVar(&o.websocket, "websocket", "",
		"Serve note frames over WebSocket on this address, e.g. :8080")
	flags.StringVar(&o.udpTarget, "udp", "",
		"Publish note frames as UDP packets to this address")
	flags.StringVarP(&o.output, "output", "o", "",
		"Write the detected notes to this MIDI file on exit")
	return cmd
}

func (o *liveOptions) resolve(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := o.load(cmd)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Audio.InputDevice = o.device
	}
	if flags.Changed("sample-rate") {
		cfg.Detector.SampleRate = o.sampleRate
	}
	if o.record {
		cfg.Recording.Enabled = true
	}
	if flags.Changed("record-dir") {
		cfg.Recording.OutputDir = o.recordDir
	}
	if flags.Changed("gate") {
		cfg.Audio.GateEnabled = true
		cfg.Audio.GateThreshold = o.gate
	}
	if flags.Changed("websocket") {
		cfg.Transport.WebSocketAddress = o.websocket
	}
	if flags.Changed("udp") {
		cfg.Transport.UDPEnabled = true
		cfg.Transport.UDPTargetAddress = o.udpTarget
	}
	return cfg, nil
}

func (o *liveOptions) run(cmd *cobra.Command, args []string) (err error) {
	cfg, err := o.resolve(cmd)
	if err != nil {
		return err
	}

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if o.pick {
		sel, err := tui.Pick(cfg)
		if err != nil {
			return err
		}
		if !sel.Confirmed {
			return nil
		}
		cfg.Audio.InputDevice = sel.Device.ID
		cfg.Detector.SampleRate = sel.SampleRate
		cfg.Detector.Method = sel.Method
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	analyzer, err := pitch.New(cfg.Detector, synth.New(cfg.Detector.ExternalPath, cfg.Detector.RootNote))
	if err != nil {
		return err
	}

	tr, err := newTransports(cfg.Transport)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, tr.Close())
	}()

	var writer *midi.SMFWriter
	var sink midi.Sink
	if o.output != "" {
		writer = midi.NewSMFWriter()
		sink = writer
	}

	engine, err := audio.NewEngine(cfg, analyzer, sink, tr)
	if err != nil {
		return err
	}
	if err := engine.StartInputStream(); err != nil {
		return err
	}
	if cfg.Recording.Enabled {
		path, err := engine.StartRecordingIn(cfg.Recording.OutputDir)
		if err != nil {
			engine.Close()
			return err
		}
		log.Infof("recording to %s", path)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Listening with %s, press Ctrl+C to stop.\n", analyzer.Method())
	<-cmd.Context().Done()

	if err := engine.Close(); err != nil {
		return err
	}
	log.Infof("analyzed %d windows", engine.Analyzed())

	if writer != nil && writer.Len() > 0 {
		if err := writer.WriteFile(o.output); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Notes saved to: %s\n", o.output)
	}
	return nil
}

// newTransports opens every configured transport. Debug logging of frames
// is always attached.
func newTransports(cfg config.TransportConfig) (transport.Multi, error) {
	m := transport.Multi{transport.NewLoggingTransport()}

	if cfg.WebSocketAddress != "" {
		m = append(m, transport.NewWebSocketTransport(cfg.WebSocketAddress))
	}

	if cfg.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.UDPTargetAddress)
		if err != nil {
			m.Close()
			return nil, err
		}
		publisher, err := udp.NewUDPPublisher(cfg.UDPSendInterval, sender)
		if err != nil {
			sender.Close()
			m.Close()
			return nil, err
		}
		publisher.Start()
		m = append(m, publisher)
	}
	return m, nil
}
