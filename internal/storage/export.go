package storage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExportMarkdown renders a share as a markdown document.
func ExportMarkdown(s *Share) string {
	var b strings.Builder

	title := s.Title
	if title == "" {
		title = "Untitled " + string(s.Language) + " program"
	}
	b.WriteString(fmt.Sprintf("# %s\n\n", title))
	b.WriteString(fmt.Sprintf("- **Share:** %s\n", s.ID))
	b.WriteString(fmt.Sprintf("- **Language:** %s\n", s.Language))
	b.WriteString(fmt.Sprintf("- **Created:** %s\n", s.CreatedAt.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("- **Test cases:** %d\n", len(s.State.TestCases)))
	b.WriteString("\n---\n\n")

	b.WriteString(fmt.Sprintf("## Code\n\n```%s\n%s\n```\n\n", s.Language, strings.TrimRight(s.State.Code, "\n")))

	for i, tc := range s.State.TestCases {
		b.WriteString(fmt.Sprintf("## Test %d\n\n", i+1))
		b.WriteString(fmt.Sprintf("Input:\n```\n%s\n```\n", tc.Input))
		b.WriteString(fmt.Sprintf("Expected output:\n```\n%s\n```\n\n", tc.ExpectedOutput))
	}

	return b.String()
}

// ExportJSON renders a share as formatted JSON.
func ExportJSON(s *Share) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
