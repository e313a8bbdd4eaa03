package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idrcli/awsidr/internal/session"
)

var contactFieldLabels = []string{"Name", "Email", "Phone (optional)"}

type contactsModel struct {
	inputs   []textinput.Model
	field    int
	contacts []session.Contact
	done     bool
	errMsg   string
}

func newContactsModel() contactsModel {
	inputs := make([]textinput.Model, len(contactFieldLabels))
	for i, label := range contactFieldLabels {
		in := textinput.New()
		in.Placeholder = label
		in.CharLimit = 128
		inputs[i] = in
	}
	inputs[0].Focus()
	return contactsModel{inputs: inputs}
}

func (m contactsModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m contactsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.done = true
			return m, tea.Quit
		case "enter":
			return m.advance()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.field], cmd = m.inputs[m.field].Update(msg)
	return m, cmd
}

// advance moves to the next field, or commits the contact when the last
// field is confirmed. Confirming an empty name finishes the prompt once at
// least one contact exists.
func (m contactsModel) advance() (tea.Model, tea.Cmd) {
	m.errMsg = ""

	if m.field == 0 && strings.TrimSpace(m.inputs[0].Value()) == "" {
		if len(m.contacts) == 0 {
			m.errMsg = "at least one contact is required"
			return m, nil
		}
		m.done = true
		return m, tea.Quit
	}

	if m.field < len(m.inputs)-1 {
		m.inputs[m.field].Blur()
		m.field++
		m.inputs[m.field].Focus()
		return m, nil
	}

	contact := session.Contact{
		Name:  strings.TrimSpace(m.inputs[0].Value()),
		Email: strings.TrimSpace(m.inputs[1].Value()),
		Phone: strings.TrimSpace(m.inputs[2].Value()),
	}
	if contact.Email == "" || !strings.Contains(contact.Email, "@") {
		m.errMsg = "a valid email is required"
		m.field = 1
		m.inputs[2].Blur()
		m.inputs[1].Focus()
		return m, nil
	}

	m.contacts = append(m.contacts, contact)
	for i := range m.inputs {
		m.inputs[i].SetValue("")
		m.inputs[i].Blur()
	}
	m.field = 0
	m.inputs[0].Focus()
	return m, nil
}

func (m contactsModel) View() string {
	s := strings.Builder{}
	s.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).
		Render("? Who should incident responders contact?"))
	s.WriteString("\n\n")

	for i, in := range m.inputs {
		marker := " "
		if i == m.field {
			marker = ">"
		}
		s.WriteString(fmt.Sprintf("%s %-18s %s\n", marker, contactFieldLabels[i]+":", in.View()))
	}

	if m.errMsg != "" {
		s.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.errMsg) + "\n")
	}

	s.WriteString(fmt.Sprintf("\n%d contact(s) added. Press [enter] on an empty name to finish.\n", len(m.contacts)))
	return s.String()
}

// promptForContacts collects notification contacts interactively.
func promptForContacts() ([]session.Contact, error) {
	p := tea.NewProgram(newContactsModel())
	m, err := p.Run()
	if err != nil {
		return nil, err
	}

	cm, ok := m.(contactsModel)
	if !ok || len(cm.contacts) == 0 {
		return nil, fmt.Errorf("onboarding needs at least one contact")
	}
	return cm.contacts, nil
}
