package commands

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type regionModel struct {
	choices  []string
	selected map[int]struct{}
	cursor   int
}

func newRegionModel(choices []string) regionModel {
	sorted := append([]string(nil), choices...)
	sort.Strings(sorted)
	return regionModel{
		choices:  sorted,
		selected: make(map[int]struct{}),
	}
}

func (m regionModel) Init() tea.Cmd {
	return nil
}

func (m regionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}
		case " ", "x":
			if _, ok := m.selected[m.cursor]; ok {
				delete(m.selected, m.cursor)
			} else {
				m.selected[m.cursor] = struct{}{}
			}
		case "enter":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m regionModel) View() string {
	s := strings.Builder{}
	s.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).
		Render("? Which regions should onboarding cover?"))
	s.WriteString("\n\n")

	for i, choice := range m.choices {
		cursor := " "
		if m.cursor == i {
			cursor = ">"
		}

		checked := " "
		if _, ok := m.selected[i]; ok {
			checked = "x"
		}

		s.WriteString(fmt.Sprintf("%s [%s] %s\n", cursor, checked, choice))
	}

	s.WriteString("\n(Press [space] to select, [enter] to confirm; nothing selected means all regions)\n")
	return s.String()
}

func (m regionModel) selectedRegions() []string {
	var selected []string
	for i := range m.selected {
		selected = append(selected, m.choices[i])
	}
	sort.Strings(selected)
	return selected
}

// promptForRegions lets the user narrow onboarding to a subset of the
// account's enabled regions. An empty selection means no restriction.
func promptForRegions(choices []string) ([]string, error) {
	p := tea.NewProgram(newRegionModel(choices))
	m, err := p.Run()
	if err != nil {
		return nil, err
	}

	if rm, ok := m.(regionModel); ok {
		return rm.selectedRegions(), nil
	}
	return nil, nil
}
