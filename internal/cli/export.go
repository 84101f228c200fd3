package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"reports/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <report-id>",
	Short: "Export a report as markdown, HTML or DOCX",
	Long: `Export the saved state of a report.

Examples:
  reports export 3f2a... --format html -o q3.html
  reports export 3f2a... -o q3.docx          # format taken from the extension`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringP("format", "f", "", "markdown, html or docx (default from --output, else markdown)")
	exportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	name, _ := cmd.Flags().GetString("format")
	switch {
	case name == "" && filepath.Ext(output) != "":
		name = filepath.Ext(output)
	case name == "":
		name = string(export.FormatMarkdown)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		return err
	}
	if format == export.FormatDOCX && output == "" {
		return fmt.Errorf("docx export needs --output")
	}

	a, _, log, err := openApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	sess, err := a.Reports().Open(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}
	return a.Exporter().Export(w, sess.Title(), sess.Tree(), format)
}
