package main

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap/zaptest"

	"github.com/michaelbrown/playground/internal/piston"
	"github.com/michaelbrown/playground/internal/runner"
)

// doubleEcho prints stdin twice.
type doubleEcho struct{}

func (doubleEcho) Execute(_ context.Context, lang piston.Language, _, stdin string) (*piston.ExecuteResponse, error) {
	code := 0
	return &piston.ExecuteResponse{
		Language: string(lang),
		Run:      &piston.StageResult{Stdout: stdin + stdin, Code: &code},
	}, nil
}

func call(t *testing.T, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	h := &testRunner{exec: doubleEcho{}, mode: runner.ModeSequential, logger: zaptest.NewLogger(t)}
	var req mcp.CallToolRequest
	req.Params.Name = "run_tests"
	req.Params.Arguments = args
	res, err := h.handleRunTests(context.Background(), req)
	if err != nil {
		t.Fatalf("handleRunTests: %v", err)
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("got %d content items", len(res.Content))
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T", res.Content[0])
	}
	return tc.Text
}

func TestRunTests(t *testing.T) {
	res := call(t, map[string]any{
		"language": "python",
		"code":     "x = input(); print(x + x)",
		"test_cases": []any{
			map[string]any{"input": "ab", "expected_output": "abab"},
			map[string]any{"input": "c", "expected_output": "cc"},
		},
	})
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	text := resultText(t, res)
	for _, want := range []string{"Test 1  passed", "Test 2  passed", "2/2 passed"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestRunTestsFailingCase(t *testing.T) {
	res := call(t, map[string]any{
		"language": "cpp",
		"code":     "int main(){}",
		"mode":     "parallel",
		"test_cases": []any{
			map[string]any{"input": "a", "expected_output": "aa"},
			map[string]any{"input": "b", "expected_output": "nope"},
		},
	})
	if !res.IsError {
		t.Fatal("expected IsError when a case fails")
	}
	if text := resultText(t, res); !strings.Contains(text, "Test 2  wrong answer") {
		t.Errorf("missing wrong answer line in:\n%s", text)
	}
}

func TestRunTestsInvalidArguments(t *testing.T) {
	one := []any{map[string]any{"input": "", "expected_output": ""}}
	seven := make([]any, 7)
	for i := range seven {
		seven[i] = map[string]any{"input": "", "expected_output": ""}
	}

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"no code", map[string]any{"language": "python", "test_cases": one}, "required"},
		{"bad language", map[string]any{"language": "ruby", "code": "x", "test_cases": one}, "error:"},
		{"cases not a list", map[string]any{"language": "python", "code": "x", "test_cases": "nope"}, "test_cases"},
		{"no cases", map[string]any{"language": "python", "code": "x", "test_cases": []any{}}, "error:"},
		{"too many cases", map[string]any{"language": "python", "code": "x", "test_cases": seven}, "at most 6"},
		{"bad mode", map[string]any{"language": "python", "code": "x", "test_cases": one, "mode": "random"}, "error:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, tt.args)
			if !res.IsError {
				t.Fatal("expected error result")
			}
			if text := resultText(t, res); !strings.Contains(text, tt.want) {
				t.Errorf("text = %q, want it to contain %q", text, tt.want)
			}
		})
	}
}

func TestRunTestsTool(t *testing.T) {
	tool := runTestsTool()
	if tool.Name != "run_tests" {
		t.Errorf("name = %q", tool.Name)
	}
	if len(tool.InputSchema.Required) != 3 {
		t.Errorf("required = %v", tool.InputSchema.Required)
	}
	for _, lang := range []string{"cpp", "python"} {
		if !strings.Contains(tool.Description, lang) {
			t.Errorf("description missing %s", lang)
		}
	}
}
