package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"applyflow/internal/match"
	"applyflow/internal/posting"
	"applyflow/internal/schedule"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Add a posting to the queue by hand",
	Run: func(cmd *cobra.Command, _ []string) {
		withQueue(cmd, func(env *queueEnv) error {
			post, err := postingFromFlags(cmd)
			if err != nil {
				return err
			}

			prof, err := env.store.LoadProfile()
			if err != nil {
				return err
			}
			led, err := env.store.LoadLedger()
			if err != nil {
				return err
			}
			hist, err := env.store.LoadHistory()
			if err != nil {
				return err
			}
			schedState, err := env.store.LoadSchedulerState()
			if err != nil {
				return err
			}

			config, err := getConfig()
			if err != nil {
				return err
			}

			res := match.Score(prof, post, led.Knows)
			now := time.Now()
			for _, skill := range res.RequiredSkills {
				led.Observe(skill, post.Identity(), now)
			}

			slot, nextState := schedule.NextSlot(schedState, config.Schedule, now)
			reapply, _ := cmd.Flags().GetBool("reapply")

			id, err := env.queue.Enqueue(post, res, slot, now, hist.Lookup, reapply)
			if err != nil {
				return err
			}

			if err := env.store.SaveQueue(env.queue); err != nil {
				return err
			}
			if err := env.store.SaveLedger(led); err != nil {
				return err
			}
			if err := env.store.SaveSchedulerState(nextState); err != nil {
				return err
			}

			env.logger.Info("enqueued posting",
				zap.String("id", id),
				zap.Int("score", res.Score),
				zap.Time("scheduled_at", slot),
			)
			for _, q := range res.Questions {
				env.logger.Info("open question", zap.String("question", q))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(enqueueCmd)

	enqueueCmd.Flags().String("title", "", "posting title")
	enqueueCmd.Flags().String("company", "", "company name")
	enqueueCmd.Flags().String("url", "", "application url")
	enqueueCmd.Flags().String("location", "", "posting location")
	enqueueCmd.Flags().String("salary", "", "salary text as published")
	enqueueCmd.Flags().String("description-file", "", "file holding the posting description")
	enqueueCmd.Flags().Bool("reapply", false, "allow re-queueing a posting with a rejected or unanswered application")

	enqueueCmd.MarkFlagRequired("title")
	enqueueCmd.MarkFlagRequired("company")
}

func postingFromFlags(cmd *cobra.Command) (*posting.Posting, error) {
	title, _ := cmd.Flags().GetString("title")
	company, _ := cmd.Flags().GetString("company")
	url, _ := cmd.Flags().GetString("url")
	location, _ := cmd.Flags().GetString("location")
	salary, _ := cmd.Flags().GetString("salary")

	var description string
	if file, _ := cmd.Flags().GetString("description-file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read description file: %w", err)
		}
		description = string(data)
	}

	post := &posting.Posting{
		Title:       title,
		Company:     company,
		Location:    location,
		SalaryText:  salary,
		Description: description,
		URL:         url,
		Source:      posting.SourceDirect,
	}
	post.FelonFriendly = match.InferFelonFriendly(description)
	return post, nil
}
