// SPDX-License-Identifier: MIT
package midi

import (
	"fmt"

	"fftune/internal/pitch"
)

type voice struct {
	note     int
	start    float64
	velocity int
}

// Scheduler tracks the voices sounding across frames and emits an event
// each time a voice ends.
//
// A note that continues from the previous frame keeps its voice. A new note
// takes over the orphaned voice nearest in pitch, which ends the old note at
// the current time, or opens a new voice when no voice is orphaned. With a
// stiffness above one, a change is only committed once it has persisted
// for that many consecutive frames.
//
// A Scheduler is not safe for concurrent use; frames must arrive in order.
type Scheduler struct {
	sink          Sink
	stiffness     int
	minConfidence float64

	clock   float64
	counter int
	voices  []voice
	frame   []int
	fresh   []pitch.Note
}

// NewScheduler returns a scheduler flushing into sink. Notes below
// minConfidence are ignored.
func NewScheduler(sink Sink, stiffness int, minConfidence float64) *Scheduler {
	return &Scheduler{
		sink:          sink,
		stiffness:     max(stiffness, 0),
		minConfidence: minConfidence,
	}
}

// Clock returns the time the next frame starts at.
func (s *Scheduler) Clock() float64 { return s.clock }

// Active returns the notes of all pending voices in voice order.
func (s *Scheduler) Active() []int {
	out := make([]int, len(s.voices))
	for i, v := range s.voices {
		out[i] = v.note
	}
	return out
}

// AddNotes feeds one frame of notes lasting duration seconds.
func (s *Scheduler) AddNotes(notes pitch.Notes, duration float64) error {
	s.frame = s.frame[:0]
	s.fresh = s.fresh[:0]
	for _, n := range notes {
		if !n.Valid() || n.Confidence < s.minConfidence || s.inFrame(n.Midi) {
			continue
		}
		s.frame = append(s.frame, n.Midi)
		if !s.pending(n.Midi) {
			s.fresh = append(s.fresh, n)
		}
	}

	if len(s.fresh) == 0 {
		s.counter = 0
	} else {
		s.counter++
		if s.counter >= s.stiffness {
			s.counter = 0
			for _, n := range s.fresh {
				if err := s.commit(n); err != nil {
					return err
				}
			}
		}
	}

	s.clock += duration
	return nil
}

// commit starts n on the nearest orphaned voice or on a new one.
func (s *Scheduler) commit(n pitch.Note) error {
	nearest := -1
	for i, v := range s.voices {
		if s.inFrame(v.note) {
			continue
		}
		if nearest < 0 || abs(v.note-n.Midi) < abs(s.voices[nearest].note-n.Midi) {
			nearest = i
		}
	}

	next := voice{note: n.Midi, start: s.clock, velocity: n.Velocity}
	if nearest < 0 {
		s.voices = append(s.voices, next)
		return nil
	}
	if err := s.emit(s.voices[nearest]); err != nil {
		return err
	}
	s.voices[nearest] = next
	return nil
}

// Flush ends every pending voice at the current time.
func (s *Scheduler) Flush() error {
	for _, v := range s.voices {
		if err := s.emit(v); err != nil {
			return err
		}
	}
	s.voices = s.voices[:0]
	s.counter = 0
	return nil
}

func (s *Scheduler) emit(v voice) error {
	e := Event{Note: v.note, Start: v.start, End: s.clock, Velocity: v.velocity}
	if err := s.sink.Add(e); err != nil {
		return fmt.Errorf("failed to add event %v: %w", e, err)
	}
	return nil
}

func (s *Scheduler) pending(note int) bool {
	for _, v := range s.voices {
		if v.note == note {
			return true
		}
	}
	return false
}

func (s *Scheduler) inFrame(note int) bool {
	for _, n := range s.frame {
		if n == note {
			return true
		}
	}
	return false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
