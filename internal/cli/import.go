package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"reports/internal/domain"
	"reports/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <file.md>",
	Short: "Create a report from a markdown file",
	Long: `Create a report from a markdown file. Headings become nested sections and
the content between them becomes blocks. The first level-one heading names
the report unless --title is given.

Examples:
  reports import plan.md
  reports import notes.md --title "Q3 review" --status generated`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringP("title", "t", "", "report title")
	importCmd.Flags().String("status", string(domain.StatusManual), "status of imported sections (generated, manual, edited)")
}

func runImport(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	status, _ := cmd.Flags().GetString("status")
	res, err := importer.Markdown(src, importer.Options{Status: domain.SectionStatus(status)})
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}

	title, _ := cmd.Flags().GetString("title")
	if title == "" {
		title = res.Title
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	}

	a, _, log, err := openApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	r, err := a.Reports().CreateFromTree(cmd.Context(), title, res.Tree)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d sections\n", r.ID, r.Title, len(r.Tree.Sections))
	return nil
}
