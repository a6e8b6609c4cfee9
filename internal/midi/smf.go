package midi

import (
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	// TicksPerQuarter is the resolution of written files.
	TicksPerQuarter = 960
	// Tempo is the tempo of written files. Event times are converted at this
	// tempo so the file plays back in real time.
	Tempo = 120.0
)

type tickedMessage struct {
	tick  uint32
	off   bool
	order int
	msg   gomidi.Message
}

// SMFWriter collects events and writes them as a format 0 Standard MIDI
// File on channel 0.
type SMFWriter struct {
	events []Event
}

// NewSMFWriter returns an empty writer.
func NewSMFWriter() *SMFWriter {
	return &SMFWriter{}
}

func (w *SMFWriter) Add(e Event) error {
	if e.End < e.Start {
		return fmt.Errorf("event %v ends before it starts", e)
	}
	if e.Note < 0 || e.Note > 127 {
		return fmt.Errorf("event note %d outside the midi range", e.Note)
	}
	w.events = append(w.events, e)
	return nil
}

// Len returns the number of collected events.
func (w *SMFWriter) Len() int { return len(w.events) }

// SecondsToTicks converts a time to ticks at Tempo.
func SecondsToTicks(sec float64) uint32 {
	return uint32(math.Round(sec * Tempo / 60 * TicksPerQuarter))
}

// SMF builds the file. Note offs sort before note ons at the same tick so a
// voice handed over to the same key does not cut the new note. Without
// events the track holds only the tempo.
func (w *SMFWriter) SMF() (*smf.SMF, error) {
	msgs := make([]tickedMessage, 0, 2*len(w.events))
	for i, e := range w.events {
		key := uint8(e.Note)
		velocity := uint8(max(1, min(e.Velocity, 127)))
		msgs = append(msgs,
			tickedMessage{tick: SecondsToTicks(e.Start), order: 2 * i, msg: gomidi.NoteOn(0, key, velocity)},
			tickedMessage{tick: SecondsToTicks(e.End), off: true, order: 2*i + 1, msg: gomidi.NoteOff(0, key)},
		)
	}
	slices.SortFunc(msgs, func(a, b tickedMessage) int {
		switch {
		case a.tick != b.tick:
			return int(a.tick) - int(b.tick)
		case a.off != b.off:
			if a.off {
				return -1
			}
			return 1
		}
		return a.order - b.order
	})

	var track smf.Track
	track.Add(0, smf.MetaTempo(Tempo))
	last := uint32(0)
	for _, m := range msgs {
		track.Add(m.tick-last, m.msg)
		last = m.tick
	}
	track.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(TicksPerQuarter)
	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}
	return s, nil
}

// WriteTo writes the file to out.
func (w *SMFWriter) WriteTo(out io.Writer) (int64, error) {
	s, err := w.SMF()
	if err != nil {
		return 0, err
	}
	return s.WriteTo(out)
}

// WriteFile writes the file to path. Nothing is created when the file
// cannot be built.
func (w *SMFWriter) WriteFile(path string) error {
	s, err := w.SMF()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create midi file: %w", err)
	}
	if _, err := s.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write midi file %s: %w", path, err)
	}
	return f.Close()
}
