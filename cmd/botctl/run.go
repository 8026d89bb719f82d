package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/campaign"
)

var runCmd = &cobra.Command{
	Use:       "run <job>",
	Short:     "Run a campaign job now (quote, news, meme, reveal, quiz)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{campaign.JobQuote, campaign.JobNews, campaign.JobMeme, campaign.JobReveal, campaign.JobQuiz},
	RunE: func(cmd *cobra.Command, args []string) error {
		scheduler, err := ops.Scheduler()
		if err != nil {
			return err
		}

		job := strings.ToLower(args[0])
		start := time.Now()
		if err := scheduler.RunNow(cmd.Context(), job); err != nil {
			if errors.Is(err, campaign.ErrUnknownJob) {
				return fmt.Errorf("%w %q, expected one of %s", err, job, strings.Join(scheduler.Jobs(), ", "))
			}
			return fmt.Errorf("job %s failed: %w", job, err)
		}
		fmt.Printf("Job %s done in %s\n", job, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [job]",
	Short: "Show recent campaign job runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job := ""
		if len(args) == 1 {
			job = strings.ToLower(args[0])
		}
		runs, err := ops.Archive.RecentRuns(cmd.Context(), job, runsLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(runs)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded")
			return nil
		}
		for _, run := range runs {
			line := fmt.Sprintf("%s  %-7s %-8s %6dms", run.StartedAt.Local().Format(time.DateTime), run.Job, run.Status, run.DurationMs)
			if run.Error != "" {
				line += "  " + run.Error
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to show")
}
