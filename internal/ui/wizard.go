package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// WizardResult holds the values collected by the setup wizard.
type WizardResult struct {
	ClientID     string
	ClientSecret string
	OutputDir    string
	Cancelled    bool
}

const (
	fieldClientID = iota
	fieldClientSecret
	fieldOutputDir
	fieldCount
)

// WizardModel is the bubbletea model for the first-run setup form.
type WizardModel struct {
	inputs    []textinput.Model
	focus     int
	done      bool
	cancelled bool
}

// NewWizard creates the setup form, pre-filled with any existing values.
func NewWizard(clientID, clientSecret, outputDir string) *WizardModel {
	inputs := make([]textinput.Model, fieldCount)

	id := textinput.New()
	id.Placeholder = "Spotify client ID"
	id.SetValue(clientID)
	id.CharLimit = 64
	id.Focus()
	inputs[fieldClientID] = id

	secret := textinput.New()
	secret.Placeholder = "Spotify client secret"
	secret.SetValue(clientSecret)
	secret.CharLimit = 64
	secret.EchoMode = textinput.EchoPassword
	secret.EchoCharacter = '•'
	inputs[fieldClientSecret] = secret

	dir := textinput.New()
	dir.Placeholder = "Download directory"
	if outputDir == "" {
		outputDir = "./downloads"
	}
	dir.SetValue(outputDir)
	dir.CharLimit = 256
	inputs[fieldOutputDir] = dir

	return &WizardModel{inputs: inputs}
}

// Result returns the collected values after the program exits.
func (m *WizardModel) Result() WizardResult {
	return WizardResult{
		ClientID:     strings.TrimSpace(m.inputs[fieldClientID].Value()),
		ClientSecret: strings.TrimSpace(m.inputs[fieldClientSecret].Value()),
		OutputDir:    strings.TrimSpace(m.inputs[fieldOutputDir].Value()),
		Cancelled:    m.cancelled,
	}
}

func (m *WizardModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit

		case "enter":
			if m.focus == fieldCount-1 {
				m.done = true
				return m, tea.Quit
			}
			m.setFocus(m.focus + 1)
			return m, nil

		case "tab", "down":
			m.setFocus((m.focus + 1) % fieldCount)
			return m, nil

		case "shift+tab", "up":
			m.setFocus((m.focus + fieldCount - 1) % fieldCount)
			return m, nil
		}
	}

	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	return m, tea.Batch(cmds...)
}

func (m *WizardModel) setFocus(i int) {
	m.focus = i
	for j := range m.inputs {
		if j == i {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
}

func (m *WizardModel) View() string {
	if m.done || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("flacsync setup"))
	b.WriteString("\n")

	labels := []string{"Client ID", "Client secret", "Downloads"}
	for i, input := range m.inputs {
		b.WriteString(fmt.Sprintf("%s\n%s\n\n", styles.warn.Render(labels[i]), input.View()))
	}

	b.WriteString(styles.help.Render("enter: next • tab: switch field • esc: cancel"))
	return b.String()
}

// RunWizard runs the setup form and returns the collected values.
func RunWizard(clientID, clientSecret, outputDir string) (WizardResult, error) {
	model := NewWizard(clientID, clientSecret, outputDir)

	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return WizardResult{}, fmt.Errorf("setup wizard failed: %w", err)
	}

	if m, ok := final.(*WizardModel); ok {
		return m.Result(), nil
	}
	return model.Result(), nil
}
