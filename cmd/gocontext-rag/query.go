package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dshills/gocontext-rag/pkg/types"
)

var (
	queryBranches   []string
	queryDirectory  string
	queryFilterDir  string
	queryOpenFiles  []string
	queryRecent     []string
	queryDescending bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Retrieve ranked chunks for a query and print them as JSON",
	Long: `Run the retrieval pipeline once and print the result.

Examples:
  gocontext-rag query "where is the config parsed"
  gocontext-rag query "http router" --branch main --filter-dir ./internal
  gocontext-rag query "" --recent internal/app/app.go --open cmd/main.go`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringSliceVar(&queryBranches, "branch", nil, "Restrict to these branches (repeatable)")
	queryCmd.Flags().StringVar(&queryDirectory, "dir", "", "Repository directory for --branch (default: workspace root)")
	queryCmd.Flags().StringVar(&queryFilterDir, "filter-dir", "", "Only full-text matches under this path")
	queryCmd.Flags().StringSliceVar(&queryOpenFiles, "open", nil, "Files to treat as open in the editor")
	queryCmd.Flags().StringSliceVar(&queryRecent, "recent", nil, "Files to treat as recently edited, most recent first")
	queryCmd.Flags().BoolVar(&queryDescending, "descending", false, "Print the best chunk first")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, _, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var query string
	if len(args) > 0 {
		query = args[0]
	}

	// Touch in reverse so the first flag value ends up most recent
	for _, path := range slices.Backward(queryRecent) {
		if _, err := a.RecordEdit(path); err != nil {
			return err
		}
	}
	a.Workspace.SetOpenFiles(queryOpenFiles)

	var tags []types.ScopeTag
	for _, branch := range queryBranches {
		tag := a.DefaultScope(branch)
		if queryDirectory != "" {
			dir, err := a.Workspace.Resolve(queryDirectory)
			if err != nil {
				return err
			}
			tag.Directory = dir
		}
		tags = append(tags, tag)
	}

	filterDir := queryFilterDir
	if filterDir != "" {
		if filterDir, err = a.Workspace.Resolve(filterDir); err != nil {
			return err
		}
	}

	chunks, err := a.Retrieve(cmd.Context(), query, tags, filterDir)
	if err != nil {
		return err
	}
	if queryDescending {
		slices.Reverse(chunks)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(chunks); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}
