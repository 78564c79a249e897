// Package verdict classifies the outcome of one test case execution.
package verdict

import (
	"strings"

	"github.com/michaelbrown/playground/internal/piston"
)

// Kind is the verdict tag.
type Kind string

const (
	Pass         Kind = "pass"
	Fail         Kind = "fail"
	RuntimeError Kind = "runtime_error"
	NetworkError Kind = "network_error"
)

const (
	msgAbnormalExit  = "abnormal termination"
	msgRuntimeError  = "runtime error occurred"
	msgMalformed     = "malformed response"
	msgCompileFailed = "compilation failed"
)

// Verdict is the classified result of one test case.
// Which fields are populated depends on Kind.
type Verdict struct {
	CaseIndex      int    `json:"case_index"`
	Kind           Kind   `json:"kind"`
	Message        string `json:"message,omitempty"`
	Stdout         string `json:"stdout,omitempty"`
	ExpectedOutput string `json:"expected_output,omitempty"`
	Stderr         string `json:"stderr,omitempty"`
	ExitCode       int    `json:"exit_code,omitempty"`
}

// IsError reports whether the verdict counts as an error in summaries.
func (v Verdict) IsError() bool {
	return v.Kind == RuntimeError || v.Kind == NetworkError
}

// Normalize trims surrounding whitespace and unifies line endings to \n.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Verify classifies an execution outcome against the expected output.
// The caller sets CaseIndex. A non-zero exit or any stderr output wins over
// a matching stdout.
func Verify(o piston.Outcome, expected string) Verdict {
	if o.Err != nil {
		return Verdict{Kind: NetworkError, Message: o.Err.Error()}
	}

	resp := o.Response
	if resp != nil && resp.Compile != nil && (resp.Compile.ExitCode() != 0 || resp.Compile.Signaled()) {
		return Verdict{
			Kind:     RuntimeError,
			Message:  msgCompileFailed,
			Stderr:   firstNonEmpty(resp.Compile.Stderr, resp.Compile.Output),
			ExitCode: resp.Compile.ExitCode(),
		}
	}

	if resp == nil || resp.Run == nil {
		return Verdict{Kind: NetworkError, Message: msgMalformed}
	}
	run := resp.Run

	if run.ExitCode() != 0 || run.Signaled() {
		msg := msgAbnormalExit
		if run.Signaled() {
			msg += " (" + *run.Signal + ")"
		}
		return Verdict{
			Kind:     RuntimeError,
			Message:  msg,
			Stdout:   run.Stdout,
			Stderr:   run.Stderr,
			ExitCode: run.ExitCode(),
		}
	}

	if strings.TrimSpace(run.Stderr) != "" {
		return Verdict{
			Kind:     RuntimeError,
			Message:  msgRuntimeError,
			Stdout:   run.Stdout,
			Stderr:   run.Stderr,
			ExitCode: 0,
		}
	}

	if Normalize(run.Stdout) == Normalize(expected) {
		return Verdict{Kind: Pass, Stdout: run.Stdout}
	}
	return Verdict{Kind: Fail, Stdout: run.Stdout, ExpectedOutput: expected}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
