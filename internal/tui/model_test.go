package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/leapstack-labs/leapcalc/internal/testutil"
	"github.com/leapstack-labs/leapcalc/internal/worker"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, cfg Config) (Model, *worker.Evaluator) {
	t.Helper()
	eval := worker.New(worker.Config{
		Options: []formula.Option{formula.WithExact(true)},
		Logger:  testutil.NewTestLogger(t),
	})
	t.Cleanup(eval.Close)
	return New(eval, cfg), eval
}

// next waits for the published result and feeds it to the model.
func next(t *testing.T, m Model) Model {
	t.Helper()
	select {
	case res := <-m.results:
		updated, _ := m.Update(resultMsg(res))
		return updated.(Model)
	case <-time.After(5 * time.Second):
		t.Fatal("no result published")
		return m
	}
}

func typeText(m Model, text string) Model {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(Model)
}

func TestInitialInput(t *testing.T) {
	m, _ := newTestModel(t, Config{Initial: "1/3 + 1/6"})
	m = next(t, m)

	answer, ok := m.Answer()
	require.True(t, ok)
	assert.Equal(t, "1 / 2", answer)
	assert.Contains(t, m.View(), "1 / 2")
}

func TestTypingSubmits(t *testing.T) {
	m, eval := newTestModel(t, Config{})
	_, ok := m.Answer()
	assert.False(t, ok)
	assert.Contains(t, m.output.View(), "type an expression")

	m = typeText(m, "6*7")
	assert.Equal(t, uint64(1), eval.Revision())
	m = next(t, m)

	answer, ok := m.Answer()
	require.True(t, ok)
	assert.Equal(t, "42", answer)
	assert.Contains(t, m.status(), "revision 1")
}

func TestErrorAndTrace(t *testing.T) {
	m, _ := newTestModel(t, Config{Initial: "2 * (3 + 4)"})
	m = next(t, m)
	assert.NotContains(t, m.resultView(), "= 2 * 7")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	m = updated.(Model)
	assert.True(t, m.trace)
	assert.Contains(t, m.resultView(), "= 2 * 7")

	m = typeText(m, "/0")
	m = next(t, m)
	_, ok := m.Answer()
	assert.False(t, ok)
	assert.Contains(t, m.resultView(), "error: division by zero")
}

func TestClearAndQuit(t *testing.T) {
	m, _ := newTestModel(t, Config{Initial: "1 + 1"})
	m = next(t, m)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	m = updated.(Model)
	assert.Empty(t, m.input.Value())
	_, ok := m.Answer()
	assert.False(t, ok)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWindowResize(t *testing.T) {
	m, _ := newTestModel(t, Config{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = updated.(Model)
	assert.Equal(t, 96, m.output.Width)
	assert.Equal(t, 40-chromeLines, m.output.Height)
}
