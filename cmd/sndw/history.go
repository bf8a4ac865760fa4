package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/soundware/sndw/recommend/adapters"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Print the stored transcript of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		turns, err := adapters.NewLibSQLTranscriptStore(a.db).LoadTurns(ctx, args[0], historyLimit)
		if err != nil {
			return err
		}
		if len(turns) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no stored turns for %s\n", args[0])
			return nil
		}

		for _, t := range turns {
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s:\n%s\n\n", t.CreatedAt.Local().Format(time.DateTime), t.Role, t.Content)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "most recent turns to print (0 prints all)")
}
