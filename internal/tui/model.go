package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/leapcalc/internal/worker"
)

const (
	inputHeight = 6
	chromeLines = inputHeight + 6 // title, status and borders
	helpText    = "ctrl+t trace • ctrl+l clear • esc quit"
)

// resultMsg carries a published worker result into the update loop.
type resultMsg worker.Result

// Model is the bubbletea model of the live evaluator.
type Model struct {
	eval    *worker.Evaluator
	results chan worker.Result

	input  textarea.Model
	output viewport.Model

	submitted string
	latest    *worker.Result
	trace     bool
	width     int
	height    int
}

// New creates a Model that submits its input to eval.
func New(eval *worker.Evaluator, cfg Config) Model {
	ta := textarea.New()
	ta.Placeholder = "1/3 + 1/6\nv = <1, 2, 3>\nlength(v)"
	ta.ShowLineNumbers = true
	ta.SetHeight(inputHeight)
	ta.Focus()
	if cfg.Initial != "" {
		ta.SetValue(cfg.Initial)
	}

	vp := viewport.New(80, 10)
	// Letters belong to the input; only paging keys scroll the output.
	vp.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
	}

	m := Model{
		eval:    eval,
		results: eval.Subscribe(),
		input:   ta,
		output:  vp,
		trace:   cfg.Trace,
	}
	m.submit()
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForResult())
}

func (m Model) waitForResult() tea.Cmd {
	ch := m.results
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return nil
		}
		return resultMsg(res)
	}
}

// submit sends the input to the evaluator when it changed since the last
// submission.
func (m *Model) submit() {
	text := m.input.Value()
	if text == m.submitted {
		return
	}
	m.submitted = text
	if strings.TrimSpace(text) == "" {
		m.latest = nil
		m.refresh()
		return
	}
	m.eval.Submit(text)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+t":
			m.trace = !m.trace
			m.refresh()
			return m, nil
		case "ctrl+l":
			m.input.Reset()
			m.submit()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.SetWidth(max(msg.Width-4, 10))
		m.output.Width = max(msg.Width-4, 10)
		m.output.Height = max(msg.Height-chromeLines, 3)
		m.refresh()

	case resultMsg:
		res := worker.Result(msg)
		// An emptied input supersedes results still in flight.
		if res.Input == m.submitted {
			m.latest = &res
			m.refresh()
		}
		return m, m.waitForResult()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.submit()

	m.output, cmd = m.output.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// refresh renders the latest result into the output pane.
func (m *Model) refresh() {
	m.output.SetContent(m.resultView())
}

func (m Model) resultView() string {
	if m.latest == nil {
		return statusStyle.Render("type an expression")
	}
	res := m.latest

	var b strings.Builder
	if m.trace && res.Group.Trace != "" {
		b.WriteString(traceStyle.Render(res.Group.Trace))
		b.WriteString("\n\n")
	}
	if res.Err != nil {
		b.WriteString(errorStyle.Render("error: " + res.Err.Error()))
	} else {
		b.WriteString(answerStyle.Render(res.Group.Answer))
	}
	return b.String()
}

func (m Model) status() string {
	if m.latest == nil {
		return helpText
	}
	state := fmt.Sprintf("revision %d • %s", m.latest.Revision, m.latest.Elapsed.Round(time.Microsecond))
	if rev := m.eval.Revision(); rev != m.latest.Revision {
		state = fmt.Sprintf("evaluating revision %d", rev)
	}
	return state + " • " + helpText
}

// View implements tea.Model.
func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("leapcalc live"),
		paneStyle.Render(m.input.View()),
		paneStyle.Render(m.output.View()),
		statusStyle.Render(m.status()),
	)
}

// Answer returns the answer currently displayed, if any.
func (m Model) Answer() (string, bool) {
	if m.latest == nil || m.latest.Err != nil {
		return "", false
	}
	return m.latest.Group.Answer, true
}
