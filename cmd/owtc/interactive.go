package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	owt "github.com/hapticio/owt"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	slotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// effectEntry records one successful compile in the session. Slots are
// numbered in compile order, matching how a driver would assign effect
// identifiers on upload.
type effectEntry struct {
	source string
	slot   int
	size   int
}

type interactiveModel struct {
	err     error
	profile owt.Profile
	input   textinput.Model
	dump    string
	effects []effectEntry
	state   modelState
}

type modelState int

const (
	stateEdit modelState = iota
	stateShowResult
)

func newInteractiveModel(profile owt.Profile) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "3.75, 100, 3.50, 100, 1!"
	ti.Prompt = "waveform: "
	ti.Width = 72
	ti.Focus()

	return &interactiveModel{
		profile: profile,
		input:   ti,
		state:   stateEdit,
	}
}

type compiledMsg struct {
	err    error
	source string
	data   []byte
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) compileCmd() tea.Msg {
	source := strings.TrimSpace(m.input.Value())
	data, err := m.profile.Compile(source)
	return compiledMsg{source: source, data: data, err: err}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "enter":
			switch m.state {
			case stateEdit:
				if strings.TrimSpace(m.input.Value()) != "" {
					return m, m.compileCmd
				}
			case stateShowResult:
				m.state = stateEdit
				m.dump = ""
				m.err = nil
				m.input.SetValue("")
				m.input.Focus()
			}

		case "esc":
			switch m.state {
			case stateEdit:
				return m, tea.Quit
			case stateShowResult:
				m.state = stateEdit
				m.dump = ""
				m.err = nil
				m.input.Focus()
			}
		}

	case compiledMsg:
		m.err = msg.err
		if msg.err == nil {
			m.dump = hex.Dump(msg.data)
			m.effects = append(m.effects, effectEntry{
				slot:   len(m.effects) + 1,
				source: msg.source,
				size:   len(msg.data),
			})
		}
		m.input.Blur()
		m.state = stateShowResult
	}

	if m.state == stateEdit {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("OWT Compiler"))
	b.WriteString(" ")
	b.WriteString(m.profile.Revision)
	b.WriteString("\n\n")

	if len(m.effects) > 0 {
		b.WriteString("Session effects:\n")
		for _, e := range m.effects {
			b.WriteString(fmt.Sprintf("  %s %s (%d bytes)\n",
				slotStyle.Render(fmt.Sprintf("#%d", e.slot)),
				sourceStyle.Render(truncate(e.source, 56)),
				e.size))
		}
		b.WriteString("\n")
	}

	switch m.state {
	case stateEdit:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter compile • esc quit"))

	case stateShowResult:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.dump))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter next • esc back"))
	}

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func runInteractive(profile owt.Profile) error {
	p := tea.NewProgram(newInteractiveModel(profile), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
