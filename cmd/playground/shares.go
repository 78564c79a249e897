package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/playground/internal/piston"
	"github.com/michaelbrown/playground/internal/storage"
	"github.com/michaelbrown/playground/internal/storage/sqlite"
)

var (
	languageFilter string
	limitFlag      int
	exportFormat   string
	exportOutput   string
	forceFlag      bool
)

var sharesCmd = &cobra.Command{
	Use:     "shares",
	Aliases: []string{"share", "s"},
	Short:   "Manage saved share links",
}

var sharesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved shares",
	RunE:  runSharesList,
}

var sharesShowCmd = &cobra.Command{
	Use:   "show <share-id>",
	Short: "Show a share's program and test cases",
	Args:  cobra.ExactArgs(1),
	RunE:  runSharesShow,
}

var sharesDeleteCmd = &cobra.Command{
	Use:   "delete <share-id>",
	Short: "Delete a share",
	Args:  cobra.ExactArgs(1),
	RunE:  runSharesDelete,
}

var sharesExportCmd = &cobra.Command{
	Use:   "export <share-id>",
	Short: "Export a share as markdown or JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runSharesExport,
}

func init() {
	rootCmd.AddCommand(sharesCmd)
	sharesCmd.AddCommand(sharesListCmd, sharesShowCmd, sharesDeleteCmd, sharesExportCmd)

	sharesListCmd.Flags().StringVar(&languageFilter, "lang", "", "Filter by language (cpp, python)")
	sharesListCmd.Flags().IntVar(&limitFlag, "limit", 20, "Max shares to show")

	sharesExportCmd.Flags().StringVar(&exportFormat, "format", "md", "Export format: md or json")
	sharesExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")

	sharesDeleteCmd.Flags().BoolVar(&forceFlag, "force", false, "Skip confirmation")
}

func openStore() (storage.Store, error) {
	cfg, err := configOnly()
	if err != nil {
		return nil, err
	}
	return sqlite.Open(cfg.Storage.DBPath)
}

func runSharesList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	opts := storage.ShareListOptions{Limit: limitFlag}
	if languageFilter != "" {
		l, err := piston.ParseLanguage(languageFilter)
		if err != nil {
			return err
		}
		opts.Language = l
	}

	shares, err := store.ListShares(context.Background(), opts)
	if err != nil {
		return err
	}

	if len(shares) == 0 {
		fmt.Println("No shares found.")
		return nil
	}

	// Header
	fmt.Printf("%-10s %-8s %-40s %-6s %s\n", "ID", "LANG", "TITLE", "CASES", "CREATED")
	fmt.Println(strings.Repeat("─", 80))

	for _, s := range shares {
		title := s.Title
		if len(title) > 38 {
			title = title[:38] + ".."
		}
		if title == "" {
			title = "(untitled)"
		}

		fmt.Printf("%-10s %-8s %-40s %-6d %s\n",
			shortID(s.ID), s.Language, title, len(s.State.TestCases), timeAgo(s.CreatedAt))
	}

	return nil
}

func runSharesShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sh, err := store.GetShare(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Share:    %s\n", sh.ID)
	if sh.Title != "" {
		fmt.Printf("Title:    %s\n", sh.Title)
	}
	fmt.Printf("Language: %s\n", sh.Language)
	fmt.Printf("Created:  %s\n", sh.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Token:    %s\n", sh.Token)

	fmt.Println(strings.Repeat("─", 60))
	for _, line := range strings.Split(strings.TrimRight(sh.State.Code, "\n"), "\n") {
		fmt.Printf("  \033[90m│ %s\033[0m\n", line)
	}

	fmt.Printf("\nTest cases: %d\n", len(sh.State.TestCases))
	for i, c := range sh.State.TestCases {
		fmt.Printf("\n\033[36mTest %d\033[0m\n", i+1)
		fmt.Printf("  input:    %s\n", truncate(c.Input, 100))
		fmt.Printf("  expected: %s\n", truncate(c.ExpectedOutput, 100))
	}

	return nil
}

func runSharesDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	sh, err := store.GetShare(ctx, args[0])
	if err != nil {
		return err
	}

	if !forceFlag {
		title := sh.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("Delete share %s - %q? [y/N] ", shortID(sh.ID), title)
		var confirm string
		fmt.Scanln(&confirm)
		if strings.ToLower(confirm) != "y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := store.DeleteShare(ctx, sh.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted share %s\n", shortID(sh.ID))
	return nil
}

func runSharesExport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sh, err := store.GetShare(context.Background(), args[0])
	if err != nil {
		return err
	}

	var output string
	switch exportFormat {
	case "json":
		data, err := storage.ExportJSON(sh)
		if err != nil {
			return err
		}
		output = string(data)
	default:
		output = storage.ExportMarkdown(sh)
	}

	if exportOutput != "" {
		return os.WriteFile(exportOutput, []byte(output), 0o644)
	}

	fmt.Print(output)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
