package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/modreg/pkg/modstore"
)

var (
	confirmSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	confirmNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	confirmDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// ConfirmModel - publish confirmation
// =============================================================================

// PublishSummary is what the user is asked to confirm before publishing.
type PublishSummary struct {
	Registry string
	Name     string
	Version  string
	File     string
	Size     int
}

// ConfirmModel is the bubbletea model asking whether to publish.
type ConfirmModel struct {
	Summary   PublishSummary
	Yes       bool // cursor on "Publish"
	Confirmed bool
	Done      bool
}

// NewConfirmModel creates a model with the cursor on "Cancel".
func NewConfirmModel(s PublishSummary) ConfirmModel {
	return ConfirmModel{Summary: s}
}

func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "esc", "q", "n":
		m.Confirmed, m.Done = false, true
		return m, tea.Quit
	case "y":
		m.Confirmed, m.Done = true, true
		return m, tea.Quit
	case "left", "right", "h", "l", "tab":
		m.Yes = !m.Yes
	case "enter":
		m.Confirmed, m.Done = m.Yes, true
		return m, tea.Quit
	}
	return m, nil
}

func (m ConfirmModel) View() string {
	if m.Done {
		return ""
	}
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Publish module"))
	b.WriteString("\n\n")
	for _, kv := range [][2]string{
		{"Registry", m.Summary.Registry},
		{"Module", m.Summary.Name},
		{"Version", StyleVersion.Render(m.Summary.Version)},
		{"File", fmt.Sprintf("%s (%d bytes)", m.Summary.File, m.Summary.Size)},
	} {
		b.WriteString(styleKey.Render(kv[0]) + " " + kv[1] + "\n")
	}
	b.WriteString("\n")

	publish, cancel := confirmNormalStyle.Render("  Publish  "), confirmSelectedStyle.Render("[ Cancel ]")
	if m.Yes {
		publish, cancel = confirmSelectedStyle.Render("[ Publish ]"), confirmNormalStyle.Render("  Cancel  ")
	}
	b.WriteString(publish + "  " + cancel + "\n\n")
	b.WriteString(confirmDimStyle.Render("y publish  n cancel  ←/→ choose  ⏎ confirm"))
	return b.String()
}

// confirmPublish runs the prompt and reports whether the user agreed.
func confirmPublish(s PublishSummary) (bool, error) {
	final, err := tea.NewProgram(NewConfirmModel(s)).Run()
	if err != nil {
		return false, err
	}
	return final.(ConfirmModel).Confirmed, nil
}

// =============================================================================
// Installed module table
// =============================================================================

// renderModuleTable renders installed modules as a bordered table.
func renderModuleTable(mods []modstore.Module) string {
	rows := make([][]string, len(mods))
	for i, m := range mods {
		rows[i] = []string{m.Author, m.Name, m.Path}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Author", "Module", "Path").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1: // header
				return headerStyle
			case col == 2:
				return lipgloss.NewStyle().Foreground(colorDim).Padding(0, 1)
			default:
				return lipgloss.NewStyle().Foreground(colorWhite).Padding(0, 1)
			}
		}).
		Render()
}
