package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/michaelbrown/playground/internal/config"
	"github.com/michaelbrown/playground/internal/logging"
	"github.com/michaelbrown/playground/internal/piston"
	"github.com/michaelbrown/playground/internal/present"
	"github.com/michaelbrown/playground/internal/runner"
	"github.com/michaelbrown/playground/internal/testcase"
)

func main() {
	configPath := flag.String("config", "", "Config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	opts := append(cfg.PistonOptions(), piston.WithLogger(logger))
	h := &testRunner{
		exec:   piston.NewClient(cfg.Piston.BaseURL, opts...),
		mode:   cfg.RunMode(),
		logger: logger,
	}

	s := server.NewMCPServer("playground-mcp", "0.1.0")
	s.AddTool(runTestsTool(), h.handleRunTests)

	if err := server.ServeStdio(s); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}

func runTestsTool() mcp.Tool {
	return mcp.Tool{
		Name: "run_tests",
		Description: fmt.Sprintf(
			"Run a program against up to %d stdin/expected-output test cases on a Piston service. Supported languages: %s.",
			testcase.MaxCases, strings.Join(languageNames(), ", ")),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"language": map[string]any{
					"type":        "string",
					"description": "Programming language (cpp or python)",
				},
				"code": map[string]any{
					"type":        "string",
					"description": "Source code to run",
				},
				"test_cases": map[string]any{
					"type":        "array",
					"description": "Test cases, each with the stdin to feed and the expected stdout",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"input":           map[string]any{"type": "string"},
							"expected_output": map[string]any{"type": "string"},
						},
					},
				},
				"mode": map[string]any{
					"type":        "string",
					"description": "sequential or parallel (optional)",
				},
			},
			Required: []string{"language", "code", "test_cases"},
		},
	}
}

func languageNames() []string {
	var names []string
	for _, l := range piston.Languages() {
		names = append(names, string(l))
	}
	return names
}

// testRunner serves run_tests. Each call builds its own Runner.
type testRunner struct {
	exec   piston.Executor
	mode   runner.Mode
	logger *zap.Logger
}

func (h *testRunner) handleRunTests(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return errResult("error: invalid arguments"), nil
	}

	language, _ := args["language"].(string)
	code, _ := args["code"].(string)
	if language == "" || code == "" {
		return errResult("error: 'language' and 'code' are required"), nil
	}
	lang, err := piston.ParseLanguage(language)
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}
	cases, err := parseCases(args["test_cases"])
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}

	mode := h.mode
	if m, _ := args["mode"].(string); m != "" {
		if mode, err = runner.ParseMode(m); err != nil {
			return errResult(fmt.Sprintf("error: %v", err)), nil
		}
	}

	r := runner.New(h.exec, mode, h.logger)
	verdicts, err := r.RunAll(ctx, code, lang, cases)
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}

	view := present.Build(verdicts, -1, len(verdicts))
	var out strings.Builder
	present.RenderText(&out, view, false)

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: out.String()}},
		IsError: view.Summary.Pass != view.Summary.Total,
	}, nil
}

var errBadCases = errors.New("'test_cases' must be a list of {input, expected_output} objects")

func parseCases(raw any) ([]testcase.Case, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, errBadCases
	}
	cases := make([]testcase.Case, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, errBadCases
		}
		input, _ := m["input"].(string)
		expected, _ := m["expected_output"].(string)
		cases = append(cases, testcase.Case{Input: input, ExpectedOutput: expected})
	}
	if err := testcase.Validate(cases); err != nil {
		return nil, err
	}
	return cases, nil
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}
