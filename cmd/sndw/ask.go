package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/soundware/sndw/logging"
	"github.com/ZanzyTHEbar/soundware/sndw/recommend"
	"github.com/ZanzyTHEbar/soundware/sndw/recommend/adapters"
)

var (
	askSession string
	askHistory int
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Run one recommendation turn and print the results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		orch, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}

		// Replay stored turns so a terminal conversation can continue where it stopped.
		if askHistory > 0 && askSession != "" {
			turns, err := adapters.NewLibSQLTranscriptStore(a.db).LoadTurns(ctx, askSession, askHistory)
			if err != nil {
				return err
			}
			if n := orch.Sessions().Restore(askSession, turns); n > 0 {
				logging.Component(a.logger, "cli").Debug().Int("turns", n).Str("session_id", askSession).Msg("Restored conversation")
			}
		}

		res, err := orch.RunTurn(ctx, askSession, strings.Join(args, " "))
		if err != nil {
			return err
		}

		return printRecommendations(cmd.OutOrStdout(), res)
	},
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "conversation id (default: shared conversation)")
	askCmd.Flags().IntVar(&askHistory, "history", 10, "stored turns to replay into the session before asking")
}

func printRecommendations(w io.Writer, res *recommend.TurnResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tARTIST\tLINK")
	for _, rec := range res.Recommendations {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.SongTitle, rec.Artist, rec.Link)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := res.Stats
	_, err := fmt.Fprintf(w, "\n%d of %d candidates resolved (%d dropped, %d misses, %d lookup errors) in %s\n",
		s.Hits, s.Candidates, s.Dropped, s.Misses, s.LookupErrors, s.Duration.Round(1e6))
	return err
}
