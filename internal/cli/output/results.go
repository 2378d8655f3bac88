package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Evaluation renders one group evaluation. The trace is shown when
// showTrace is set; structured modes always include it.
func (r *Renderer) Evaluation(out EvalOutput, showTrace bool) error {
	if ok, err := r.Structured(out); ok {
		return err
	}

	if r.EffectiveMode() == ModeMarkdown {
		if showTrace && out.Trace != "" {
			r.Println(FormatCodeBlock(out.Trace))
			r.Println("")
		}
		if out.Error != "" {
			r.Println(FormatKeyValue("Error", out.Error))
			return nil
		}
		r.Println(FormatKeyValue("Answer", out.Answer))
		return nil
	}

	if showTrace && out.Trace != "" {
		r.Println(r.styles.Trace.Render(out.Trace))
	}
	if out.Error != "" {
		r.Error(out.Error)
		return nil
	}
	r.Println(r.styles.Answer.Render(out.Answer))
	return nil
}

// Variables renders bound variables as a table.
func (r *Renderer) Variables(vars []VariableInfo) error {
	if ok, err := r.Structured(vars); ok {
		return err
	}
	if len(vars) == 0 {
		r.Muted("(no variables)")
		return nil
	}

	t := r.newTable()
	t.AppendHeader(table.Row{"Name", "Value", "Kind", "Defined as", "Depends on"})
	for _, v := range vars {
		t.AppendRow(table.Row{v.Name, v.Value, v.Kind, v.Expr, strings.Join(v.DependsOn, ", ")})
	}
	r.renderTable(t)
	return nil
}

// History renders recorded evaluations as a table, newest first.
func (r *Renderer) History(entries []HistoryEntry) error {
	if ok, err := r.Structured(entries); ok {
		return err
	}
	if len(entries) == 0 {
		r.Muted("(no history)")
		return nil
	}

	t := r.newTable()
	t.AppendHeader(table.Row{"When", "Input", "Answer"})
	for _, e := range entries {
		answer := e.Answer
		if e.Error != "" {
			answer = "error: " + e.Error
		}
		t.AppendRow(table.Row{e.CreatedAt.Local().Format("2006-01-02 15:04:05"), oneLine(e.Input), oneLine(answer)})
	}
	r.renderTable(t)
	r.Muted(fmt.Sprintf("(%d entries)", len(entries)))
	return nil
}

func (r *Renderer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	return t
}

func (r *Renderer) renderTable(t table.Writer) {
	if r.EffectiveMode() == ModeMarkdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}

func oneLine(s string) string {
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(s, "\n", " ⏎ ")
}
