package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hearth-chat/hearth/internal/server"
)

var errSetupCancelled = errors.New("setup cancelled")

// setupModel is a minimal bubbletea model for first-run server configuration.
type setupModel struct {
	inputs    []textinput.Model
	focused   int
	done      bool
	cancelled bool
	err       string
}

const (
	fieldName = iota
	fieldHost
	fieldPort
	fieldDB
	numFields
)

func newSetupModel(defaults *server.Config) setupModel {
	inputs := make([]textinput.Model, numFields)

	inputs[fieldName] = textinput.New()
	inputs[fieldName].Placeholder = defaults.ServerName
	inputs[fieldName].SetValue(defaults.ServerName)
	inputs[fieldName].Focus()
	inputs[fieldName].CharLimit = 253

	inputs[fieldHost] = textinput.New()
	inputs[fieldHost].Placeholder = defaults.Host
	inputs[fieldHost].SetValue(defaults.Host)
	inputs[fieldHost].CharLimit = 64

	inputs[fieldPort] = textinput.New()
	inputs[fieldPort].Placeholder = strconv.Itoa(defaults.Port)
	inputs[fieldPort].SetValue(strconv.Itoa(defaults.Port))
	inputs[fieldPort].CharLimit = 5

	inputs[fieldDB] = textinput.New()
	inputs[fieldDB].Placeholder = defaults.DatabasePath
	inputs[fieldDB].SetValue(defaults.DatabasePath)
	inputs[fieldDB].CharLimit = 128

	return setupModel{inputs: inputs}
}

func (m setupModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m setupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit

		case "tab", "down", "enter":
			if msg.String() == "enter" && m.focused == numFields-1 {
				if _, err := m.config(); err != nil {
					m.err = err.Error()
					return m, nil
				}
				m.done = true
				return m, tea.Quit
			}
			m.inputs[m.focused].Blur()
			m.focused = (m.focused + 1) % numFields
			m.inputs[m.focused].Focus()
			return m, nil

		case "shift+tab", "up":
			m.inputs[m.focused].Blur()
			m.focused = (m.focused - 1 + numFields) % numFields
			m.inputs[m.focused].Focus()
			return m, nil
		}
	}

	// Forward key events to focused input
	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return m, cmd
}

// config builds the configuration from the current field values
func (m setupModel) config() (*server.Config, error) {
	cfg := server.DefaultConfig()
	cfg.ServerName = strings.TrimSpace(m.inputs[fieldName].Value())
	cfg.Host = strings.TrimSpace(m.inputs[fieldHost].Value())
	cfg.DatabasePath = strings.TrimSpace(m.inputs[fieldDB].Value())

	port, err := strconv.Atoi(strings.TrimSpace(m.inputs[fieldPort].Value()))
	if err != nil {
		return nil, errors.New("port must be a number")
	}
	cfg.Port = port

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#bd93f9")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555"))
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f8f8f2")).
			Background(lipgloss.Color("#bd93f9")).
			Bold(true).
			Padding(0, 2)
)

func (m setupModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("  hearthd First-Run Setup  "))
	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render("Tab/↑↓ to navigate · Enter on last field to confirm · Esc to cancel"))
	b.WriteString("\n\n")

	labels := []string{"Server Name", "Bind Host", "Port", "Database Path"}
	for i, label := range labels {
		b.WriteString(labelStyle.Render(label))
		b.WriteString("\n")
		b.WriteString("  " + m.inputs[i].View())
		b.WriteString("\n\n")
	}

	if m.err != "" {
		b.WriteString(errStyle.Render("  ⚠ " + m.err))
		b.WriteString("\n")
	}

	return b.String()
}

// runFirstRunSetup runs the interactive setup and writes the result to
// server.ConfigFilename in the working directory.
func runFirstRunSetup() (*server.Config, error) {
	result, err := tea.NewProgram(newSetupModel(server.DefaultConfig())).Run()
	if err != nil {
		return nil, fmt.Errorf("setup error: %w", err)
	}

	final := result.(setupModel)
	if final.cancelled || !final.done {
		return nil, errSetupCancelled
	}
	cfg, err := final.config()
	if err != nil {
		return nil, err
	}

	if err := cfg.Save(server.ConfigFilename); err != nil {
		return nil, err
	}
	fmt.Printf("\nConfig written to %s\n", server.ConfigFilename)
	fmt.Printf("Point the client at http://%s\n\n", cfg.Addr())
	return cfg, nil
}
