// Package present turns a (possibly partial) verdict list into a view that a
// rendering layer can draw without knowing how runs are scheduled.
package present

import (
	"fmt"

	"github.com/michaelbrown/playground/internal/runner"
	"github.com/michaelbrown/playground/internal/verdict"
)

// State is the renderable state of one case slot.
type State string

const (
	Pending   State = "pending"
	Running   State = "running"
	Completed State = "completed"
)

const passMessage = "Output matches expected"

// Summary counts verdicts. Error covers runtime and network errors.
type Summary struct {
	Total int `json:"total"`
	Pass  int `json:"pass"`
	Fail  int `json:"fail"`
	Error int `json:"error"`
}

// CaseView is one case slot. Verdict is set only for completed cases.
type CaseView struct {
	Index   int              `json:"index"`
	State   State            `json:"state"`
	Verdict *verdict.Verdict `json:"verdict,omitempty"`
	Detail  string           `json:"detail,omitempty"`
}

// View is the whole result panel.
type View struct {
	Summary Summary    `json:"summary"`
	Cases   []CaseView `json:"cases"`
	Done    bool       `json:"done"`
}

// Build places each completed verdict at its case index. The slot at running
// (if any, -1 for none) is marked running and the rest are pending.
// Verdicts with an index outside [0, total) are ignored.
func Build(completed []verdict.Verdict, running, total int) View {
	if total < 0 {
		total = 0
	}
	v := View{
		Summary: Summary{Total: total},
		Cases:   make([]CaseView, total),
	}
	for i := range v.Cases {
		v.Cases[i] = CaseView{Index: i, State: Pending}
	}
	if running >= 0 && running < total {
		v.Cases[running].State = Running
	}

	done := 0
	for _, vd := range completed {
		i := vd.CaseIndex
		if i < 0 || i >= total || v.Cases[i].State == Completed {
			continue
		}
		v.Cases[i] = CaseView{
			Index:   i,
			State:   Completed,
			Verdict: &vd,
			Detail:  detail(vd),
		}
		done++
		switch {
		case vd.Kind == verdict.Pass:
			v.Summary.Pass++
		case vd.Kind == verdict.Fail:
			v.Summary.Fail++
		case vd.IsError():
			v.Summary.Error++
		}
	}
	v.Done = total > 0 && done == total
	return v
}

// FromSnapshot builds the view of a runner snapshot. Every case in flight is
// marked running, which in parallel mode can be several at once.
func FromSnapshot(s runner.Snapshot) View {
	v := Build(s.Completed(), s.Running, s.Total)
	for i := range v.Cases {
		if v.Cases[i].State == Pending && s.InFlight(i) {
			v.Cases[i].State = Running
		}
	}
	v.Done = s.Done
	return v
}

func detail(v verdict.Verdict) string {
	switch v.Kind {
	case verdict.Pass:
		return passMessage
	case verdict.Fail:
		return fmt.Sprintf("expected %q, got %q", v.ExpectedOutput, v.Stdout)
	case verdict.RuntimeError:
		d := fmt.Sprintf("%s (exit code %d)", v.Message, v.ExitCode)
		if v.Stderr != "" {
			d += "\n" + v.Stderr
		}
		return d
	default:
		return v.Message
	}
}
