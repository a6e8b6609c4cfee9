// SPDX-License-Identifier: MIT

// Package transport publishes the notes detected by the live engine.
package transport

import (
	"errors"
	"time"

	"fftune/internal/pitch"
)

// Transport defines a generic interface for sending note frames or other
// events. Implementations must be safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// NoteFrame is the set of notes sounding in one analysis window.
type NoteFrame struct {
	Time  float64     `json:"time"` // seconds since the stream started
	Notes []FrameNote `json:"notes"`
}

// FrameNote is the wire form of a pitch.Note.
type FrameNote struct {
	Midi       int     `json:"midi"`
	Name       string  `json:"name"`
	Velocity   int     `json:"velocity"`
	Confidence float64 `json:"confidence"`
	Intonation float64 `json:"intonation"`
}

// NewNoteFrame converts detected notes into a frame at time t.
func NewNoteFrame(t float64, notes pitch.Notes) NoteFrame {
	f := NoteFrame{Time: t, Notes: make([]FrameNote, len(notes))}
	for i, n := range notes {
		f.Notes[i] = FrameNote{
			Midi:       n.Midi,
			Name:       n.Name(),
			Velocity:   n.Velocity,
			Confidence: n.Confidence,
			Intonation: n.Intonation,
		}
	}
	return f
}

// Timestamp converts the frame time into a duration.
func (f NoteFrame) Timestamp() time.Duration {
	return time.Duration(f.Time * float64(time.Second))
}

// Multi fans every Send out to all transports. All transports are tried;
// the errors are joined.
type Multi []Transport

func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
