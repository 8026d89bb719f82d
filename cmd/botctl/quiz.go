package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/store"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Inspect the daily quiz",
}

type quizStatus struct {
	Pending    bool         `json:"pending"`
	Generating bool         `json:"generating"`
	Quiz       *domain.Quiz `json:"quiz,omitempty"`
	Targets    int          `json:"targets"`
}

var quizStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the pending quiz and how many chats received it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var status quizStatus

		var quizID string
		found, err := ops.Store.Get(ctx, store.PointerKey(constants.CampaignConfig.QuizPointerKind), &quizID)
		if err != nil {
			return err
		}
		status.Pending = found
		status.Generating = found && quizID == ""

		if found && quizID != "" {
			var quiz domain.Quiz
			ok, err := ops.Store.Get(ctx, store.QuizKey(quizID), &quiz)
			if err != nil {
				return err
			}
			if ok {
				status.Quiz = &quiz
			}
			refs, err := ops.Store.ScanPrefix(ctx, store.MessageRefPrefix(quizID), 0)
			if err != nil {
				return err
			}
			status.Targets = len(refs)
		}

		if jsonOutput {
			return printJSON(status)
		}
		switch {
		case !status.Pending:
			fmt.Println("No quiz pending")
		case status.Generating:
			fmt.Println("A quiz is being generated")
		case status.Quiz == nil:
			fmt.Printf("Pointer set to %s but the quiz record is gone\n", quizID)
		default:
			answer, _ := status.Quiz.CorrectOption()
			fmt.Printf("%s (%s, %s, %d pts)\n", status.Quiz.Titre, status.Quiz.Domaine, status.Quiz.Difficulte, status.Quiz.Points)
			fmt.Printf("  %s\n", status.Quiz.Question)
			fmt.Printf("  answer: %s\n", answer.Text)
			fmt.Printf("  sent to %d chats\n", status.Targets)
		}
		return nil
	},
}

var historyLimit int

var quizHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived quizzes",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := ops.Archive.RecentQuizzes(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(records)
		}
		for _, record := range records {
			revealed := "pending"
			if record.RevealedAt != nil {
				revealed = fmt.Sprintf("revealed in %d", record.Revealed)
			}
			fmt.Printf("%s  %-40s %-14s sent to %d, %s\n",
				record.PublishedAt.Local().Format(time.DateTime), record.Title, record.Difficulty, record.Targets, revealed)
		}
		return nil
	},
}

func init() {
	quizHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of quizzes to show")
	quizCmd.AddCommand(quizStatusCmd)
	quizCmd.AddCommand(quizHistoryCmd)
}
