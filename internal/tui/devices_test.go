package tui

import (
	"errors"
	"strings"
	"testing"

	"fftune/internal/audio"
	"fftune/internal/config"

	tea "github.com/charmbracelet/bubbletea"
)

var testDevices = []audio.Device{
	{ID: 0, Name: "Built-in Microphone", MaxInputChannels: 1, DefaultSampleRate: 48000},
	{ID: 3, Name: "USB Interface", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 96000},
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive feeds the messages to m and reports whether the last one quit.
func drive(t *testing.T, m tea.Model, msgs ...tea.Msg) (DeviceListModel, bool) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		m, cmd = m.Update(msg)
	}
	quit := false
	if cmd != nil {
		_, quit = cmd().(tea.QuitMsg)
	}
	return m.(DeviceListModel), quit
}

func newTestModel(t *testing.T, fetch func() ([]audio.Device, error)) DeviceListModel {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Detector.Method = config.MethodYin
	m := NewDeviceListModel(fetch, cfg)
	msg := m.Init()()
	next, _ := drive(t, m, tea.WindowSizeMsg{Width: 80, Height: 24}, msg)
	return next
}

func fixedDevices() ([]audio.Device, error) { return testDevices, nil }

func TestPickDeviceAndMethod(t *testing.T) {
	m := newTestModel(t, fixedDevices)
	if !strings.Contains(m.View(), "USB Interface") {
		t.Fatalf("View() does not list the devices:\n%s", m.View())
	}

	m, quit := drive(t, m,
		keyMsg("down"),  // USB Interface
		keyMsg("enter"), // configure
		keyMsg("left"),  // 96000 -> 88200
		keyMsg("down"),  // method row
		keyMsg("right"), // yin -> yin-patient
		keyMsg("enter"),
	)
	if !quit {
		t.Fatal("enter on the configuration screen did not quit")
	}
	want := Selection{Device: testDevices[1], SampleRate: 88200, Method: config.MethodYinPatient, Confirmed: true}
	if got := m.Selection(); got != want {
		t.Errorf("Selection() = %+v, want %+v", got, want)
	}
}

func TestPickNavigationClamps(t *testing.T) {
	m := newTestModel(t, fixedDevices)
	m, _ = drive(t, m, keyMsg("up"), keyMsg("k"), keyMsg("enter"))
	if m.activeScreen != ConfigScreen || m.selectedIndex != 0 {
		t.Fatalf("screen %v, index %d", m.activeScreen, m.selectedIndex)
	}
	// 48000 is preselected; stepping past either end stays in range.
	for range len(SampleRates) + 2 {
		m, _ = drive(t, m, keyMsg("right"))
	}
	if m.sampleRateIndex != len(SampleRates)-1 {
		t.Errorf("sampleRateIndex = %d", m.sampleRateIndex)
	}
	m, _ = drive(t, m, keyMsg("esc"))
	if m.activeScreen != ListScreen {
		t.Error("esc did not return to the list")
	}
}

func TestPickQuit(t *testing.T) {
	m := newTestModel(t, fixedDevices)
	m, quit := drive(t, m, keyMsg("q"))
	if !quit {
		t.Fatal("q did not quit")
	}
	if m.Selection().Confirmed {
		t.Error("quitting confirmed a selection")
	}
}

func TestPickErrors(t *testing.T) {
	fetchErr := errors.New("host unavailable")
	tests := []struct {
		name  string
		fetch func() ([]audio.Device, error)
		want  error
	}{
		{"fetch fails", func() ([]audio.Device, error) { return nil, fetchErr }, fetchErr},
		{"no devices", func() ([]audio.Device, error) { return nil, nil }, ErrNoInputDevices},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, tt.fetch)
			if !errors.Is(m.err, tt.want) {
				t.Fatalf("err = %v, want %v", m.err, tt.want)
			}
			if !strings.Contains(m.View(), "Error") {
				t.Errorf("View() = %q", m.View())
			}
			if _, quit := drive(t, m, keyMsg("x")); !quit {
				t.Error("a key after an error did not quit")
			}
		})
	}
}
