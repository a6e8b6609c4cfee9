// Package tui holds the interactive input device picker of the live mode.
package tui

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"fftune/internal/audio"
	"fftune/internal/config"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrNoInputDevices is returned by Pick when the host has nothing to record from.
var ErrNoInputDevices = errors.New("no audio input devices found")

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

// SampleRates are the rates offered on the configuration screen.
var SampleRates = []float64{44100, 48000, 88200, 96000}

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

// Configuration rows on ConfigScreen.
const (
	rowSampleRate = iota
	rowMethod
	rowCount
)

type keyMap struct {
	Up, Down, Left, Right, Enter, Back, Quit key.Binding
}

var keys = keyMap{
	Up:    key.NewBinding(key.WithKeys("up", "k")),
	Down:  key.NewBinding(key.WithKeys("down", "j")),
	Left:  key.NewBinding(key.WithKeys("left", "h")),
	Right: key.NewBinding(key.WithKeys("right", "l")),
	Enter: key.NewBinding(key.WithKeys("enter")),
	Back:  key.NewBinding(key.WithKeys("esc")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

// Selection is the outcome of the picker. Confirmed is false when the user
// quit without choosing.
type Selection struct {
	Device     audio.Device
	SampleRate float64
	Method     config.Method
	Confirmed  bool
}

// DeviceListModel is the Bubble Tea model of the picker.
type DeviceListModel struct {
	fetch         func() ([]audio.Device, error)
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	row             int
	sampleRateIndex int
	methods         []config.Method
	methodIndex     int
	selection       Selection
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// NewDeviceListModel creates a picker listing the devices returned by
// fetch, with the method preselected from cfg.
func NewDeviceListModel(fetch func() ([]audio.Device, error), cfg *config.Config) DeviceListModel {
	m := DeviceListModel{
		fetch:        fetch,
		activeScreen: ListScreen,
		methods:      config.Methods(),
	}
	m.methodIndex = max(0, slices.Index(m.methods, cfg.Detector.Method))
	return m
}

// Init fetches the devices.
func (m DeviceListModel) Init() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		devices, err := fetch()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

// Selection returns what the user picked so far.
func (m DeviceListModel) Selection() Selection { return m.selection }

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		if len(m.devices) == 0 {
			m.err = ErrNoInputDevices
		}
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) || m.err != nil {
			return m, tea.Quit
		}
		if m.activeScreen == ListScreen {
			return m.updateList(msg)
		}
		return m.updateConfig(msg)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m DeviceListModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}
	case key.Matches(msg, keys.Down):
		if m.selectedIndex < len(m.devices)-1 {
			m.selectedIndex++
		}
	case key.Matches(msg, keys.Enter):
		if len(m.devices) == 0 {
			break
		}
		m.activeScreen = ConfigScreen
		m.row = rowSampleRate
		m.sampleRateIndex = max(0, slices.Index(SampleRates, m.devices[m.selectedIndex].DefaultSampleRate))
	}
	m.refresh()
	return m, nil
}

func (m DeviceListModel) updateConfig(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		m.activeScreen = ListScreen
	case key.Matches(msg, keys.Up):
		m.row = (m.row + rowCount - 1) % rowCount
	case key.Matches(msg, keys.Down):
		m.row = (m.row + 1) % rowCount
	case key.Matches(msg, keys.Left):
		m.step(-1)
	case key.Matches(msg, keys.Right):
		m.step(1)
	case key.Matches(msg, keys.Enter):
		m.selection = Selection{
			Device:     m.devices[m.selectedIndex],
			SampleRate: SampleRates[m.sampleRateIndex],
			Method:     m.methods[m.methodIndex],
			Confirmed:  true,
		}
		return m, tea.Quit
	}
	m.refresh()
	return m, nil
}

// step moves the value of the focused row, clamped to its options.
func (m *DeviceListModel) step(d int) {
	switch m.row {
	case rowSampleRate:
		m.sampleRateIndex = min(max(m.sampleRateIndex+d, 0), len(SampleRates)-1)
	case rowMethod:
		m.methodIndex = min(max(m.methodIndex+d, 0), len(m.methods)-1)
	}
}

func (m *DeviceListModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ListScreen {
		m.viewport.SetContent(m.renderDevices())
	} else {
		m.viewport.SetContent(m.renderDeviceConfig())
	}
}

// View renders the UI
func (m DeviceListModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress any key to exit.", m.err)
	}
	if !m.ready {
		return "Initializing..."
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Input Devices")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Configure • q: Quit")
	} else {
		title = titleStyle.Render("Detector Configuration")
		help = infoStyle.Render("↑/↓: Select • ←/→: Change • Enter: Start • Esc: Back • q: Quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "Looking for input devices..."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		info := fmt.Sprintf("[%d] %s (%s)\n", device.ID, device.Name, device.Kind())
		info += fmt.Sprintf("    Input channels: %d, Latency: %.1f-%.1f ms\n",
			device.MaxInputChannels, device.LowInputLatency, device.HighInputLatency)
		info += fmt.Sprintf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)

		if i == m.selectedIndex {
			info = highlightStyle.Render(info)
		}
		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m DeviceListModel) renderDeviceConfig() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Device: %s\n\n", m.devices[m.selectedIndex].Name)

	rows := [rowCount]string{
		rowSampleRate: fmt.Sprintf("Sample rate: ◀ %.0f Hz ▶", SampleRates[m.sampleRateIndex]),
		rowMethod:     fmt.Sprintf("Method:      ◀ %s ▶", m.methods[m.methodIndex]),
	}
	for i, r := range rows {
		line := "    " + r
		if i == m.row {
			line = highlightStyle.Render("  ▶ " + r)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Pick runs the picker full screen and returns the selection.
func Pick(cfg *config.Config) (Selection, error) {
	p := tea.NewProgram(
		NewDeviceListModel(audio.InputDevices, cfg),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return Selection{}, err
	}
	m := final.(DeviceListModel)
	if m.err != nil {
		return Selection{}, m.err
	}
	return m.Selection(), nil
}
