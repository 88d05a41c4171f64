// internal/tui/explorer.go
//
// The explorer is a small bubbletea program for trying requests against the
// project's aliases without running a build. Type a raw import request and
// the path the bundler would resolve it to; the decision updates on every
// keystroke.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/relalias/internal/alias"
)

// field identifies which input has focus
type field int

const (
	fieldRequest field = iota
	fieldResolved
	fieldCount
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF")).
			MarginBottom(1)
	matchStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7BD88F"))
	missStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1)
)

// Explorer is the bubbletea model behind `relalias explore`.
type Explorer struct {
	resolver *alias.Resolver
	inputs   [fieldCount]textinput.Model
	focus    field
	aliases  table.Model
	decision alias.Decision
	err      error
	width    int
}

// NewExplorer builds the model for r. The alias table lists every key the
// resolver was configured with.
func NewExplorer(r *alias.Resolver) *Explorer {
	e := &Explorer{resolver: r}

	request := textinput.New()
	request.Prompt = "request  › "
	request.Placeholder = "./example.js"
	request.CharLimit = 512
	request.Focus()

	resolved := textinput.New()
	resolved.Prompt = "resolved › "
	resolved.Placeholder = "/project/src/specific/path/example.js"
	resolved.CharLimit = 1024

	e.inputs = [fieldCount]textinput.Model{request, resolved}
	e.aliases = table.New(
		table.WithColumns([]table.Column{
			{Title: "Request", Width: 24},
			{Title: "Kind", Width: 10},
			{Title: "From context", Width: 24},
			{Title: "Alias", Width: 40},
		}),
		table.WithRows(aliasRows(r)),
		table.WithHeight(8),
	)
	return e
}

func aliasRows(r *alias.Resolver) []table.Row {
	if r == nil {
		return nil
	}
	keys := r.Keys()
	rows := make([]table.Row, 0, len(keys))
	for _, key := range keys {
		entry, _ := r.Entry(key)
		rows = append(rows, table.Row{key, entry.Kind().String(), entry.FromContext(), entry.Path()})
	}
	return rows
}

// Init starts the cursor blinking.
func (e *Explorer) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key presses and re-evaluates the decision.
func (e *Explorer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		e.width = msg.Width
		return e, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return e, tea.Quit
		case tea.KeyTab, tea.KeyShiftTab, tea.KeyEnter:
			step := field(1)
			if msg.Type == tea.KeyShiftTab {
				step = fieldCount - 1
			}
			return e, e.setFocus((e.focus + step) % fieldCount)
		}
	}
	var cmd tea.Cmd
	e.inputs[e.focus], cmd = e.inputs[e.focus].Update(msg)
	e.evaluate()
	return e, cmd
}

func (e *Explorer) setFocus(next field) tea.Cmd {
	e.inputs[e.focus].Blur()
	e.focus = next
	return e.inputs[e.focus].Focus()
}

func (e *Explorer) evaluate() {
	e.decision, e.err = alias.NoMatch, nil
	if e.resolver == nil {
		return
	}
	raw := e.inputs[fieldRequest].Value()
	if strings.TrimSpace(raw) == "" {
		return
	}
	e.decision, e.err = e.resolver.Resolve(alias.Request{
		RawRequest:   raw,
		ResolvedPath: e.inputs[fieldResolved].Value(),
	})
}

// Decision returns the outcome for the current inputs.
func (e *Explorer) Decision() (alias.Decision, error) {
	return e.decision, e.err
}

// View renders the inputs, the decision and the alias table.
func (e *Explorer) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("relalias · %d aliases", len(e.aliases.Rows()))))
	b.WriteString("\n")
	for i := range e.inputs {
		b.WriteString(e.inputs[i].View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(e.renderDecision())
	b.WriteString("\n\n")
	b.WriteString(boxStyle.Render(e.aliases.View()))
	b.WriteString(hintStyle.Render("Tab → switch field    Esc → quit"))
	return b.String()
}

func (e *Explorer) renderDecision() string {
	raw := e.inputs[fieldRequest].Value()
	switch {
	case e.err != nil:
		return errorStyle.Render(e.err.Error())
	case e.decision.Matched():
		return matchStyle.Render("replace → " + e.decision.Path)
	case strings.TrimSpace(raw) == "":
		return missStyle.Render("type a request to test it")
	case !alias.IsRelative(raw):
		return missStyle.Render("not relative, skipped")
	default:
		return missStyle.Render("no match")
	}
}
