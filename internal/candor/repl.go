package candor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"candor/internal/config"
)

// replModel is a bubbletea REPL over a single long-lived Isolate: each
// submitted line compiles to a throwaway "main" function body and runs
// immediately, the way the teacher's internal/ui progress model drives
// a pipeline from channel-fed events, except a REPL's "pipeline" is
// just one Compile+Call per Enter key.
type replModel struct {
	iso     *Isolate
	input   textinput.Model
	history []string
	width   int
	quit    bool
}

var (
	replPromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	replErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	replValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	replEchoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

// NewREPLModel returns a bubbletea program model backed by a fresh
// Isolate built from cfg.
func NewREPLModel(cfg config.Config) tea.Model {
	ti := textinput.New()
	ti.Prompt = "candor> "
	ti.Focus()
	ti.CharLimit = 4096
	return &replModel{
		iso:   NewIsolate(cfg, nil),
		input: ti,
		width: 80,
	}
}

func (m *replModel) Init() tea.Cmd { return textinput.Blink }

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = runewidth.StringWidth(m.input.Prompt) + msg.Width - 4
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quit = true
			return m, tea.Quit
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(line) == "" {
				return m, nil
			}
			m.history = append(m.history, m.eval(line))
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *replModel) View() string {
	var b strings.Builder
	for _, line := range m.history {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if !m.quit {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	return b.String()
}

// eval compiles line as a "main" function body and runs it, rendering
// either the result value or the first diagnostic/error it produced.
// A line that already starts with "return" is kept as is, with a
// trailing ';' added when missing; anything else is treated as a bare
// expression and wrapped in a return statement.
func (m *replModel) eval(line string) string {
	echo := replEchoStyle.Render(m.input.Prompt+line) + "\n"

	body := strings.TrimSpace(line)
	if !strings.HasPrefix(body, "return") {
		body = "return (" + body + ");"
	} else if !strings.HasSuffix(body, ";") {
		body += ";"
	}
	src := "fn main() { " + body + " }"

	fn, diags, err := m.iso.Compile(src)
	if err != nil {
		return echo + replErrorStyle.Render("parse error: "+err.Error())
	}
	if diags != nil && diags.HasErrors() {
		items := diags.Items()
		return echo + replErrorStyle.Render(fmt.Sprintf("%d diagnostic(s), first: %s", len(items), items[0].Message))
	}
	if fn == nil {
		return echo + replErrorStyle.Render("no main function compiled")
	}

	result, vmErr := fn.Call()
	if vmErr != nil {
		return echo + replErrorStyle.Render(vmErr.Format())
	}
	return echo + replValueStyle.Render(describe(result))
}

// describe renders a Value the way a REPL's result line should: one
// of its own fields for scalars, a tag name for anything with no
// obvious scalar rendering.
func describe(v Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBoolean():
		return fmt.Sprintf("%v", v.Bool())
	case v.IsNumber():
		return fmt.Sprintf("%v", v.Float64())
	case v.IsString():
		return fmt.Sprintf("%q", v.String())
	case v.IsArray():
		return fmt.Sprintf("Array(%d)", v.Len())
	case v.IsObject():
		return "Object"
	case v.IsFunction():
		return "Function"
	case v.IsCData():
		return "CData"
	default:
		return "?"
	}
}

// RunREPL runs an interactive REPL on stdout until the user exits.
func RunREPL(cfg config.Config) error {
	p := tea.NewProgram(NewREPLModel(cfg))
	_, err := p.Run()
	return err
}
