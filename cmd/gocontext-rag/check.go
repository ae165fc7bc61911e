package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/gocontext-rag/internal/app"
	"github.com/dshills/gocontext-rag/internal/logging"
)

const checkSource = `package main

// Add adds two numbers
func Add(a, b int) int {
	return a + b
}

func main() {
	result := Add(1, 2)
	println(result)
}
`

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run ingest and retrieval end to end against a scratch workspace",
	Long: `Create a temporary workspace holding one Go file, ingest it into an in-memory
database with the configured embedder and relevance model, then retrieve it.
Use this to verify API keys and model downloads before serving.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Pretty)

	tmpDir, err := os.MkdirTemp("", "gocontext-check-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := os.WriteFile(filepath.Join(tmpDir, "add.go"), []byte(checkSource), 0o644); err != nil {
		return fmt.Errorf("write sample file: %w", err)
	}

	cfg.DBPath = ":memory:"
	cfg.Workspace = tmpDir
	a, err := app.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Embedder:        %s/%s\n", a.Embedder.Provider(), a.Embedder.Model())
	fmt.Fprintf(out, "Relevance model: %s\n", a.RelevanceModelName())

	ctx := cmd.Context()
	stats, err := a.Ingest(ctx, a.DefaultScope(app.DefaultBranch), nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Files indexed:   %d\n", stats.FilesIndexed)
	fmt.Fprintf(out, "Chunks created:  %d\n", stats.ChunksCreated)
	for _, msg := range stats.ErrorMessages {
		fmt.Fprintf(out, "  error: %s\n", msg)
	}

	chunks, err := a.Retrieve(ctx, "add two numbers", nil, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Chunks returned: %d\n", len(chunks))
	if len(chunks) == 0 {
		fmt.Fprintln(out, "FAIL: nothing was retrieved")
		return errors.New("check failed")
	}
	best := chunks[len(chunks)-1]
	fmt.Fprintf(out, "Best match:      %s:%d-%d\n", filepath.Base(best.Filepath), best.StartLine, best.EndLine)
	fmt.Fprintln(out, "OK")
	return nil
}
