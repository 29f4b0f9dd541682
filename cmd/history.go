package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/vllm-launcher/launcher/results"
)

func newHistoryCmd() *cobra.Command {
	var (
		dbPath string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List runs recorded with --results-db, newest first",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := printHistory(cmd.Context(), dbPath, limit, cmd.OutOrStdout()); err != nil {
				logrus.Fatalf("History failed: %v", err)
			}
		},
	}
	cmd.Flags().StringVar(&dbPath, "results-db", "", "SQLite database written by --results-db")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 = all)")
	_ = cmd.MarkFlagRequired("results-db")
	return cmd
}

func printHistory(ctx context.Context, dbPath string, limit int, w io.Writer) error {
	store, err := results.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN AT\tMODE\tENGINE\tMODEL\tTP/PP/DP\tTOKENS\tELAPSED (s)\tTOKENS/SEC")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d/%d\t%d\t%.2f\t%.2f\n",
			r.RunAt.Local().Format("2006-01-02 15:04:05"), r.Mode, r.Engine, r.Model,
			r.TensorParallel, r.PipelineParallel, r.DataParallel,
			r.TotalTokens, r.ElapsedSeconds, r.TokensPerSecond)
	}
	return tw.Flush()
}
