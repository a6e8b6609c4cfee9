package transport

import (
	"fftune/internal/log"
)

// LoggingTransport implements the Transport interface by logging note frames
// at debug level.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received frame. Logging never fails to "send".
func (lt *LoggingTransport) Send(data any) error {
	if !log.Enabled(log.LevelDebug) {
		return nil
	}
	switch v := data.(type) {
	case NoteFrame:
		names := make([]string, len(v.Notes))
		for i, n := range v.Notes {
			names[i] = n.Name
		}
		log.Debugf("Transport: %.3fs %v", v.Time, names)
	default:
		log.Debugf("Transport: received %T: %+v", data, data)
	}
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	log.Debugf("Transport: LoggingTransport closed")
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
