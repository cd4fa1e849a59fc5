package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"applyflow/internal/logger"
	"applyflow/internal/queue"
	"applyflow/internal/store"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the application queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all queue entries",
	Run: func(cmd *cobra.Command, _ []string) {
		withQueue(cmd, func(env *queueEnv) error {
			if env.queue.Len() == 0 {
				fmt.Println("queue is empty")
				return nil
			}
			for _, e := range env.queue.Entries {
				printEntry(e)
			}
			return nil
		})
	},
}

var queueDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List entries ready for submission right now",
	Run: func(cmd *cobra.Command, _ []string) {
		withQueue(cmd, func(env *queueEnv) error {
			due := env.queue.DueEntries(time.Now())
			if len(due) == 0 {
				fmt.Println("nothing is due")
				return nil
			}
			for _, e := range due {
				printEntry(e)
			}
			return nil
		})
	},
}

var queueSkipCmd = &cobra.Command{
	Use:   "skip <id>",
	Short: "Skip a queued entry so it is never submitted",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withQueue(cmd, func(env *queueEnv) error {
			if err := env.queue.Skip(args[0]); err != nil {
				return err
			}
			if err := env.store.SaveQueue(env.queue); err != nil {
				return err
			}
			env.logger.Info("entry skipped", zap.String("id", args[0]))
			return nil
		})
	},
}

var queueRescheduleCmd = &cobra.Command{
	Use:   "reschedule <id> <time>",
	Short: "Move an entry to a new action time (RFC 3339)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		withQueue(cmd, func(env *queueEnv) error {
			at, err := time.Parse(time.RFC3339, args[1])
			if err != nil {
				return fmt.Errorf("parse time %q: %w", args[1], err)
			}
			if err := env.queue.Reschedule(args[0], at); err != nil {
				return err
			}
			if err := env.store.SaveQueue(env.queue); err != nil {
				return err
			}
			env.logger.Info("entry rescheduled", zap.String("id", args[0]), zap.Time("at", at))
			return nil
		})
	},
}

var queueOutcomeCmd = &cobra.Command{
	Use:   "outcome <id> <outcome>",
	Short: "Record the employer response for an applied entry",
	Long:  "Outcome is one of: applied, interview, offer, rejected, no_response.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		withQueue(cmd, func(env *queueEnv) error {
			id, outcome := args[0], args[1]
			switch outcome {
			case queue.OutcomeApplied, queue.OutcomeInterview, queue.OutcomeOffer,
				queue.OutcomeRejected, queue.OutcomeNoResponse:
			default:
				return fmt.Errorf("invalid outcome: %s", outcome)
			}

			if err := env.queue.SetOutcome(id, outcome); err != nil {
				return err
			}

			entry := env.queue.Get(id)
			hist, err := env.store.LoadHistory()
			if err != nil {
				return err
			}
			hist.RecordOutcome(entry.Posting.Identity(), outcome)

			led, err := env.store.LoadLedger()
			if err != nil {
				return err
			}
			led.RecordOutcome(entry.Posting.Identity(), outcome)

			if err := env.store.SaveQueue(env.queue); err != nil {
				return err
			}
			if err := env.store.SaveHistory(hist); err != nil {
				return err
			}
			if err := env.store.SaveLedger(led); err != nil {
				return err
			}

			env.logger.Info("outcome recorded", zap.String("id", id), zap.String("outcome", outcome))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueListCmd, queueDueCmd, queueSkipCmd, queueRescheduleCmd, queueOutcomeCmd)
}

type queueEnv struct {
	store  *store.Store
	queue  *queue.Queue
	logger *zap.Logger
}

func withQueue(cmd *cobra.Command, fn func(env *queueEnv) error) {
	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	st, err := store.Open(config.DataDir)
	if err != nil {
		zlog.Fatal("opening the state store", zap.Error(err))
	}

	q, err := st.LoadQueue()
	if err != nil {
		zlog.Fatal("loading the queue", zap.Error(err))
	}

	if err := fn(&queueEnv{store: st, queue: q, logger: zlog}); err != nil {
		zlog.Fatal(cmd.Name()+" failed", zap.Error(err))
	}
}

func printEntry(e *queue.Entry) {
	line := fmt.Sprintf("%-12s %-40s %s", e.State, e.ID, e.ScheduledAt.Format(time.RFC3339))
	if e.AttemptCount > 0 {
		line += fmt.Sprintf(" attempts=%d", e.AttemptCount)
	}
	if e.LastError != "" {
		line += fmt.Sprintf(" last_error=%q", e.LastError)
	}
	if e.Outcome != "" {
		line += fmt.Sprintf(" outcome=%s", e.Outcome)
	}
	fmt.Println(line)
}
