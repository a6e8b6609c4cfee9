// SPDX-License-Identifier: MIT

// Package midi turns frames of detected notes into note events and writes
// them as Standard MIDI Files.
package midi

import (
	"fmt"
	"sync"

	"fftune/internal/music"
)

// Event is one sounded note. Times are in seconds from the start of the
// stream.
type Event struct {
	Note     int
	Start    float64
	End      float64
	Velocity int
}

// Duration returns how long the note sounds.
func (e Event) Duration() float64 { return e.End - e.Start }

func (e Event) String() string {
	return fmt.Sprintf("%s [%.3fs, %.3fs] v%d", music.Name(e.Note), e.Start, e.End, e.Velocity)
}

// Sink receives events in the order they are flushed.
type Sink interface {
	Add(e Event) error
}

// Recorder is a Sink keeping events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Add(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset drops all events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = r.events[:0]
}

// Tee forwards every event to all sinks, stopping at the first error.
type Tee []Sink

func (t Tee) Add(e Event) error {
	for _, s := range t {
		if err := s.Add(e); err != nil {
			return err
		}
	}
	return nil
}
