package config

import (
	"fmt"
	"strings"
)

// Method identifies a pitch detection algorithm.
type Method int

const (
	MethodSpectral   Method = iota // fftune-spectral
	MethodSfizz                    // fftune-sfizz
	MethodYin                      // yin
	MethodYinPatient               // yin-patient
	MethodFastComb                 // fast-comb
	MethodDoubleFFT                // double-fft
	MethodSchmitt                  // schmitt
	MethodInvalid
)

var methodNames = [...]string{
	MethodSpectral:   "fftune-spectral",
	MethodSfizz:      "fftune-sfizz",
	MethodYin:        "yin",
	MethodYinPatient: "yin-patient",
	MethodFastComb:   "fast-comb",
	MethodDoubleFFT:  "double-fft",
	MethodSchmitt:    "schmitt",
}

// Methods lists every valid method in declaration order.
func Methods() []Method {
	out := make([]Method, 0, len(methodNames))
	for m := range methodNames {
		out = append(out, Method(m))
	}
	return out
}

func (m Method) String() string {
	if m >= 0 && int(m) < len(methodNames) {
		return methodNames[m]
	}
	return "invalid"
}

// Valid reports whether m names an algorithm.
func (m Method) Valid() bool {
	return m >= 0 && m < MethodInvalid
}

// NeedsExternalPath reports whether m renders reference tones from an
// instrument file.
func (m Method) NeedsExternalPath() bool {
	return m == MethodSfizz
}

// ParseMethod maps a case-insensitive name to a Method. Unknown names
// return MethodInvalid and an error wrapping ErrInvalidAlgorithm.
func ParseMethod(name string) (Method, error) {
	canonical := strings.ToLower(strings.TrimSpace(name))
	for m, n := range methodNames {
		if n == canonical {
			return Method(m), nil
		}
	}
	return MethodInvalid, fmt.Errorf("%w: unknown method %q", ErrInvalidAlgorithm, name)
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode
// to MethodInvalid so Validate can report them.
func (m *Method) UnmarshalText(text []byte) error {
	*m, _ = ParseMethod(string(text))
	return nil
}
