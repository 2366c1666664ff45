package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/ebcc/codec"
	"github.com/wippyai/ebcc/engine"
	"github.com/wippyai/ebcc/grid"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2B6CB0")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// runInteractive starts the compression explorer: tweak ratio, mode, and
// bound against one loaded grid and watch compressed size and round-trip
// error respond.
func runInteractive(wasmFile, gridFile, dimsStr string, memPages uint32) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode requires a terminal")
	}
	if gridFile == "" || dimsStr == "" {
		return fmt.Errorf("interactive mode requires -encode <file> and -dims")
	}

	frames, height, width, err := parseDims(dimsStr)
	if err != nil {
		return err
	}

	m := newExplorerModel(wasmFile, gridFile, frames, height, width, memPages)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

type explorerState int

const (
	stateLoading explorerState = iota
	stateEditing
	stateFailed
)

type explorerModel struct {
	wasmFile string
	gridFile string
	frames   int
	height   int
	width    int
	memPages uint32

	eng *engine.WazeroEngine
	c   *codec.Codec
	g   *grid.Grid

	inputs   []textinput.Model // ratio, mode, bound
	focusIdx int
	state    explorerState

	result string
	errMsg string
}

type engineReadyMsg struct {
	err error
	eng *engine.WazeroEngine
	g   *grid.Grid
}

type encodeDoneMsg struct {
	err     error
	size    int
	rawSize int
	maxErr  float64
}

func newExplorerModel(wasmFile, gridFile string, frames, height, width int, memPages uint32) *explorerModel {
	labels := []string{"10.0", "base", "0.01"}
	inputs := make([]textinput.Model, 3)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].SetValue(labels[i])
		inputs[i].CharLimit = 16
		inputs[i].Width = 12
	}
	inputs[0].Focus()

	return &explorerModel{
		wasmFile: wasmFile,
		gridFile: gridFile,
		frames:   frames,
		height:   height,
		width:    width,
		memPages: memPages,
		inputs:   inputs,
		state:    stateLoading,
	}
}

func (m *explorerModel) Init() tea.Cmd {
	return m.loadEngine
}

func (m *explorerModel) loadEngine() tea.Msg {
	ctx := context.Background()

	g, err := readGrid(m.gridFile, m.frames, m.height, m.width)
	if err != nil {
		return engineReadyMsg{err: err}
	}

	eng, err := newEngine(ctx, m.wasmFile, m.memPages)
	if err != nil {
		return engineReadyMsg{err: err}
	}
	return engineReadyMsg{eng: eng, g: g}
}

func (m *explorerModel) runEncode() tea.Msg {
	ctx := context.Background()

	ratio, err := strconv.ParseFloat(m.inputs[0].Value(), 32)
	if err != nil {
		return encodeDoneMsg{err: fmt.Errorf("bad ratio %q", m.inputs[0].Value())}
	}
	bound, err := strconv.ParseFloat(m.inputs[2].Value(), 32)
	if err != nil {
		return encodeDoneMsg{err: fmt.Errorf("bad bound %q", m.inputs[2].Value())}
	}
	policy, err := buildPolicy(float32(ratio), m.inputs[1].Value(), float32(bound))
	if err != nil {
		return encodeDoneMsg{err: err}
	}

	payload, err := m.c.Encode(ctx, m.g, policy)
	if err != nil {
		return encodeDoneMsg{err: err}
	}

	out, err := grid.New(m.frames, m.height, m.width)
	if err != nil {
		return encodeDoneMsg{err: err}
	}
	if err := m.c.DecodeInto(ctx, payload, out); err != nil {
		return encodeDoneMsg{err: err}
	}

	var maxErr float64
	orig := m.g.Data()
	for i, v := range out.Data() {
		if e := math.Abs(float64(v) - float64(orig[i])); e > maxErr {
			maxErr = e
		}
	}

	return encodeDoneMsg{
		size:    len(payload),
		rawSize: m.g.Len() * 4,
		maxErr:  maxErr,
	}
}

func (m *explorerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.eng != nil {
				m.eng.Close(context.Background())
			}
			return m, tea.Quit

		case "tab", "down":
			if m.state == stateEditing {
				m.cycleFocus(1)
			}

		case "shift+tab", "up":
			if m.state == stateEditing {
				m.cycleFocus(-1)
			}

		case "enter":
			if m.state == stateEditing {
				m.result = ""
				m.errMsg = ""
				return m, m.runEncode
			}
		}

	case engineReadyMsg:
		if msg.err != nil {
			m.state = stateFailed
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.eng = msg.eng
		m.g = msg.g
		m.c = codec.New(m.eng)
		m.state = stateEditing
		return m, nil

	case encodeDoneMsg:
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.result = fmt.Sprintf("%d -> %d bytes (%.2fx), max round-trip error %.6g",
			msg.rawSize, msg.size, float64(msg.rawSize)/float64(msg.size), msg.maxErr)
		return m, nil
	}

	if m.state == stateEditing {
		var cmd tea.Cmd
		m.inputs[m.focusIdx], cmd = m.inputs[m.focusIdx].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *explorerModel) cycleFocus(dir int) {
	m.inputs[m.focusIdx].Blur()
	m.focusIdx = (m.focusIdx + dir + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focusIdx].Focus()
}

func (m *explorerModel) View() string {
	s := titleStyle.Render("ebcc explorer") + "\n\n"

	switch m.state {
	case stateLoading:
		s += "Loading engine and grid...\n"

	case stateFailed:
		s += errorStyle.Render("Error: "+m.errMsg) + "\n"
		s += helpStyle.Render("esc: quit")
		return s

	case stateEditing:
		s += fmt.Sprintf("%s %dx%dx%d from %s\n\n",
			labelStyle.Render("Grid:"), m.frames, m.height, m.width, m.gridFile)
		names := []string{"ratio", "mode (base/abs/rel)", "bound"}
		for i, in := range m.inputs {
			s += fmt.Sprintf("  %s %s\n", labelStyle.Render(names[i]+":"), in.View())
		}
		s += "\n"
		if m.errMsg != "" {
			s += errorStyle.Render(m.errMsg) + "\n"
		}
		if m.result != "" {
			s += resultStyle.Render(m.result) + "\n"
		}
		s += "\n" + helpStyle.Render("tab: next field • enter: compress • esc: quit")
	}

	return s
}
