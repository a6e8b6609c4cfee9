// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"fftune/internal/log"
	"fftune/internal/transport"
)

// UDPPublisher keeps the latest note frame handed to Send and periodically
// packs it into a binary packet sent with a UDPSender. It runs in a separate
// goroutine managed by Start and Stop.
type UDPPublisher struct {
	sender   *UDPSender
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	frameMu sync.Mutex
	frame   transport.NoteFrame
	fresh   bool

	sequenceNum  uint32
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates a publisher. If the interval is invalid (<= 0) it
// defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender *UDPSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		log.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	log.Infof("UDPPublisher: Initializing (Interval: %s)", interval)

	return &UDPPublisher{
		sender:       sender,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Send stores the frame to publish on the next tick. Only NoteFrame values
// are accepted.
func (p *UDPPublisher) Send(data any) error {
	frame, ok := data.(transport.NoteFrame)
	if !ok {
		return fmt.Errorf("UDPPublisher: unsupported payload %T", data)
	}
	p.frameMu.Lock()
	p.frame = frame
	p.fresh = true
	p.frameMu.Unlock()
	return nil
}

// Start begins the periodic publishing. Calling Start on a running
// publisher is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Debugf("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it.
// Stopping a stopped publisher is a no-op.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		log.Debugf("UDPPublisher: Stop called but not running.")
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	log.Debugf("UDPPublisher: Publisher goroutine finished.")
	return nil
}

/*
UDP Packet Structure (BigEndian)

+------------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description              |
|-------------------|----------------|--------------|--------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing |
| Timestamp         | int64          | 8            | Nanoseconds since epoch  |
| Frame Time        | float64        | 8            | Seconds since stream start|
| Note Count        | uint16         | 2            | Number of notes (N)      |
| Notes             | []packetNote   | N * 10       | midi, velocity, conf, int|
+------------------------------------------------------------------------------+

Each note is midi uint8, velocity uint8, confidence float32 and intonation
float32.
*/

const (
	headerSize = 4 + 8 + 8 + 2
	noteSize   = 1 + 1 + 4 + 4
)

type packetHeader struct {
	Sequence  uint32
	Timestamp int64
	FrameTime float64
	Count     uint16
}

type packetNote struct {
	Midi       uint8
	Velocity   uint8
	Confidence float32
	Intonation float32
}

// Packet is a decoded UDP packet.
type Packet struct {
	Sequence  uint32
	Timestamp time.Time
	Frame     transport.NoteFrame
}

// ErrShortPacket is returned when a packet is truncated.
var ErrShortPacket = errors.New("short packet")

// AppendPacket encodes frame into buf.
func AppendPacket(buf *bytes.Buffer, seq uint32, ts time.Time, frame transport.NoteFrame) error {
	hdr := packetHeader{
		Sequence:  seq,
		Timestamp: ts.UnixNano(),
		FrameTime: frame.Time,
		Count:     uint16(len(frame.Notes)),
	}
	if err := binary.Write(buf, binary.BigEndian, hdr); err != nil {
		return err
	}
	for _, n := range frame.Notes {
		pn := packetNote{
			Midi:       uint8(n.Midi),
			Velocity:   uint8(n.Velocity),
			Confidence: float32(n.Confidence),
			Intonation: float32(n.Intonation),
		}
		if err := binary.Write(buf, binary.BigEndian, pn); err != nil {
			return err
		}
	}
	return nil
}

// ParsePacket decodes a packet written by AppendPacket. Note names are
// not transmitted and stay empty.
func ParsePacket(data []byte) (Packet, error) {
	if len(data) < headerSize {
		return Packet{}, ErrShortPacket
	}
	r := bytes.NewReader(data)
	var hdr packetHeader
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return Packet{}, err
	}
	if len(data) < headerSize+int(hdr.Count)*noteSize {
		return Packet{}, fmt.Errorf("%w: %d notes in %d bytes", ErrShortPacket, hdr.Count, len(data))
	}
	pkt := Packet{
		Sequence:  hdr.Sequence,
		Timestamp: time.Unix(0, hdr.Timestamp),
		Frame:     transport.NoteFrame{Time: hdr.FrameTime, Notes: make([]transport.FrameNote, hdr.Count)},
	}
	for i := range pkt.Frame.Notes {
		var pn packetNote
		if err := binary.Read(r, binary.BigEndian, &pn); err != nil {
			return Packet{}, err
		}
		pkt.Frame.Notes[i] = transport.FrameNote{
			Midi:       int(pn.Midi),
			Velocity:   int(pn.Velocity),
			Confidence: float64(pn.Confidence),
			Intonation: float64(pn.Intonation),
		}
	}
	return pkt, nil
}

// publish sends the latest frame. Nothing is sent until the first frame
// arrives; afterwards the last frame is repeated so late listeners catch up.
func (p *UDPPublisher) publish() {
	p.frameMu.Lock()
	frame, fresh := p.frame, p.fresh
	p.frameMu.Unlock()
	if !fresh {
		return
	}

	p.sequenceNum++
	p.packetBuffer.Reset()
	if err := AppendPacket(p.packetBuffer, p.sequenceNum, time.Now(), frame); err != nil {
		log.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return
	}
	packet := p.packetBuffer.Bytes()
	if err := p.sender.Send(packet); err == nil {
		log.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(packet))
	}
}

// Close stops the publisher and closes its sender.
func (p *UDPPublisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

var _ transport.Transport = (*UDPPublisher)(nil)
