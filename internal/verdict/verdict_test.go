package verdict

import (
	"errors"
	"testing"

	"github.com/michaelbrown/playground/internal/piston"
)

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func success(code int, stdout, stderr string) piston.Outcome {
	return piston.Outcome{Response: &piston.ExecuteResponse{
		Run: &piston.StageResult{Stdout: stdout, Stderr: stderr, Code: intPtr(code)},
	}}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a\r\nb\r", "a\nb"},
		{"  hello \n", "hello"},
		{"x\ry", "x\ny"},
		{"", ""},
		{"\r\n\r\n", ""},
		{"1\r\n2\r\n3\r\n", "1\n2\n3"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"", " ", "a", "a\r\nb\r", "\r a \r", "\n\r\n x \r\r y \t",
		"line1\r\nline2\n\rline3", "  mixed  ",
	}
	for _, s := range inputs {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q -> %q", s, once, twice)
		}
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name     string
		outcome  piston.Outcome
		expected string
		want     Kind
		message  string
	}{
		{
			name:     "trailing newline passes",
			outcome:  success(0, "X\n", ""),
			expected: "X",
			want:     Pass,
		},
		{
			name:     "crlf expected passes",
			outcome:  success(0, "1\n2\n", ""),
			expected: "1\r\n2\r\n",
			want:     Pass,
		},
		{
			name:     "wrong output fails",
			outcome:  success(0, "3\n", ""),
			expected: "4",
			want:     Fail,
		},
		{
			name:     "stderr overrides match",
			outcome:  success(0, "A", "warning"),
			expected: "A",
			want:     RuntimeError,
			message:  msgRuntimeError,
		},
		{
			name:     "whitespace-only stderr is ignored",
			outcome:  success(0, "A", " \n"),
			expected: "A",
			want:     Pass,
		},
		{
			name:     "nonzero exit overrides match",
			outcome:  success(2, "A", ""),
			expected: "A",
			want:     RuntimeError,
			message:  msgAbnormalExit,
		},
		{
			name:     "transport failure",
			outcome:  piston.Outcome{Err: errors.New("connection refused")},
			expected: "A",
			want:     NetworkError,
			message:  "connection refused",
		},
		{
			name:     "missing run is malformed",
			outcome:  piston.Outcome{Response: &piston.ExecuteResponse{Language: "cpp"}},
			expected: "A",
			want:     NetworkError,
			message:  msgMalformed,
		},
		{
			name:     "nil response is malformed",
			outcome:  piston.Outcome{},
			expected: "A",
			want:     NetworkError,
			message:  msgMalformed,
		},
		{
			name: "missing exit code counts as zero",
			outcome: piston.Outcome{Response: &piston.ExecuteResponse{
				Run: &piston.StageResult{Stdout: "ok"},
			}},
			expected: "ok",
			want:     Pass,
		},
		{
			name: "killed by signal",
			outcome: piston.Outcome{Response: &piston.ExecuteResponse{
				Run: &piston.StageResult{Stdout: "ok", Signal: strPtr("SIGKILL")},
			}},
			expected: "ok",
			want:     RuntimeError,
			message:  msgAbnormalExit + " (SIGKILL)",
		},
		{
			name: "compile failure",
			outcome: piston.Outcome{Response: &piston.ExecuteResponse{
				Compile: &piston.StageResult{Stderr: "error: expected ';'", Code: intPtr(1)},
			}},
			expected: "ok",
			want:     RuntimeError,
			message:  msgCompileFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Verify(tt.outcome, tt.expected)
			if got.Kind != tt.want {
				t.Fatalf("Kind = %q, want %q (%+v)", got.Kind, tt.want, got)
			}
			if tt.message != "" && got.Message != tt.message {
				t.Errorf("Message = %q, want %q", got.Message, tt.message)
			}
		})
	}
}

func TestVerifyFailKeepsRawText(t *testing.T) {
	got := Verify(success(0, "  3\r\n", ""), "4\n")
	if got.Kind != Fail {
		t.Fatalf("Kind = %q, want fail", got.Kind)
	}
	if got.Stdout != "  3\r\n" || got.ExpectedOutput != "4\n" {
		t.Errorf("fail verdict should carry raw text, got %+v", got)
	}
}

func TestVerifyRuntimeErrorCarriesDetail(t *testing.T) {
	got := Verify(success(139, "", "Segmentation fault"), "")
	if got.Kind != RuntimeError || got.ExitCode != 139 || got.Stderr != "Segmentation fault" {
		t.Errorf("got %+v", got)
	}
	if !got.IsError() {
		t.Error("runtime error should count as error")
	}
}
