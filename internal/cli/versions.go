package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions <report-id>",
	Short: "List, save or restore versions of a report",
	Long: `List the saved versions of a report, oldest first.

Examples:
  reports versions 3f2a...                     # list
  reports versions 3f2a... --save "Sent to board"
  reports versions 3f2a... --restore 91c0...   # restore and save`,
	Args: cobra.ExactArgs(1),
	RunE: runVersions,
}

func init() {
	versionsCmd.Flags().String("save", "", "save a labeled version of the current content")
	versionsCmd.Flags().String("restore", "", "restore the version with this id and save the result")
	versionsCmd.MarkFlagsMutuallyExclusive("save", "restore")
}

func runVersions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, _, log, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	sess, err := a.Reports().Open(ctx, args[0])
	if err != nil {
		return err
	}

	if label, _ := cmd.Flags().GetString("save"); label != "" {
		v, err := sess.SaveVersion(ctx, label)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved version %s\n", v.ID)
		return nil
	}
	if id, _ := cmd.Flags().GetString("restore"); id != "" {
		if err := sess.RestoreVersion(ctx, id); err != nil {
			return err
		}
		if err := sess.Save(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored version %s\n", id)
		return nil
	}

	versions, err := sess.ListVersions(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tLABEL\tSECTIONS")
	for _, v := range versions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", v.ID, v.CreatedAt.Local().Format(time.DateTime), v.Label, len(v.Tree.Sections))
	}
	return tw.Flush()
}
