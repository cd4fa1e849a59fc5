package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"applyflow/internal/filtering"
	"applyflow/internal/history"
	"applyflow/internal/ledger"
	"applyflow/internal/logger"
	"applyflow/internal/match"
	"applyflow/internal/posting"
	"applyflow/internal/profile"
	"applyflow/internal/queue"
	"applyflow/internal/schedule"
	"applyflow/internal/secrets"
	"applyflow/internal/search/serpapi"
	"applyflow/internal/store"
)

const (
	PromptYes             = "Enqueue all"
	PromptNo              = "No"
	PromptPickManually    = "Pick postings one by one"
	PromptReportByCompany = "Report by company"
	PromptPostingsToFile  = "Dump postings to file"
	PromptBack            = "back"

	minEnqueueScore = 40
)

var errExit = errors.New("exit requested")

var searchPrompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptYes, PromptNo, PromptPickManually, PromptReportByCompany, PromptPostingsToFile},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Discover postings, score them and enqueue the good ones",
	Run: func(cmd *cobra.Command, _ []string) {
		runSearch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().BoolP("include-applied", "f", false, "do not drop postings already pursued in history")
	searchCmd.Flags().Bool("include-aggregators", false, "keep postings from job board aggregators")
	searchCmd.Flags().BoolP("auto-approve", "y", false, "enqueue scored postings without confirmation")
	searchCmd.Flags().Bool("reapply", false, "allow re-queueing postings with a rejected or unanswered application")
	searchCmd.Flags().Int("min-score", minEnqueueScore, "minimum match score required to enqueue")
}

func runSearch(cmd *cobra.Command) {
	ctx := context.Background()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}
	if config.Search == nil || strings.TrimSpace(config.Search.Title) == "" {
		zlog.Fatal("a search title is required under the search section")
	}

	st, err := store.Open(config.DataDir)
	if err != nil {
		zlog.Fatal("opening the state store", zap.Error(err))
	}

	prof, err := st.LoadProfile()
	if err != nil {
		zlog.Fatal("loading the profile", zap.Error(err))
	}
	hist, err := st.LoadHistory()
	if err != nil {
		zlog.Fatal("loading the history", zap.Error(err))
	}
	led, err := st.LoadLedger()
	if err != nil {
		zlog.Fatal("loading the skills ledger", zap.Error(err))
	}
	q, err := st.LoadQueue()
	if err != nil {
		zlog.Fatal("loading the queue", zap.Error(err))
	}
	schedState, err := st.LoadSchedulerState()
	if err != nil {
		zlog.Fatal("loading the scheduler state", zap.Error(err))
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "serpapi api key",
		Env:  "SERPAPI_API_KEY",
	})
	if err != nil {
		zlog.Fatal("loading the serpapi api key", zap.Error(err),
			zap.String("hint", "set SERPAPI_API_KEY in the environment or .env"),
		)
	}

	client, err := serpapi.New(apiKey, logger.WithComponent(zlog, "serpapi"))
	if err != nil {
		zlog.Fatal("creating the search client", zap.Error(err))
	}

	zlog.Info("starting the search",
		zap.String("title", config.Search.Title),
		zap.String("location", config.Search.Location),
	)

	postings, err := client.SearchJobs(ctx, *config.Search)
	if err != nil {
		zlog.Fatal("searching for postings", zap.Error(err))
	}
	if postings.Len() == 0 {
		zlog.Info("exiting", zap.String("reason", "no postings found"))
		return
	}

	filtered, err := runSearchFilters(ctx, cmd, prof, hist, zlog, postings)
	if err != nil {
		zlog.Fatal("filtering failed", zap.Error(err))
	}
	postings = filtered

	if postings.Len() == 0 {
		zlog.Info("exiting", zap.String("reason", "no postings left after filters"))
		return
	}

	minScore, _ := cmd.Flags().GetInt("min-score")
	scored := scorePostings(prof, led, postings, minScore, zlog)
	if len(scored) == 0 {
		zlog.Info("exiting", zap.String("reason", "no postings scored above the threshold"))
		return
	}

	session := &searchSession{
		store:      st,
		queue:      q,
		history:    hist,
		ledger:     led,
		schedCfg:   config.Schedule,
		schedState: schedState,
		reapply:    mustFlagBool(cmd, "reapply"),
		logger:     zlog,
	}

	autoApprove := mustFlagBool(cmd, "auto-approve")
	for {
		action := PromptYes
		if !autoApprove {
			_, action, err = searchPrompt.Run()
			if err != nil {
				zlog.Fatal("exiting", zap.Error(err))
			}
		}

		zlog.Info("current list of postings", zap.Int("count", len(scored)))

		if err := session.handleAction(action, &scored); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			zlog.Fatal("exiting", zap.Error(err))
		}
		if autoApprove {
			return
		}
	}
}

type scoredPosting struct {
	posting *posting.Posting
	result  *match.Result
}

type searchSession struct {
	store      *store.Store
	queue      *queue.Queue
	history    *history.History
	ledger     *ledger.Ledger
	schedCfg   schedule.Config
	schedState schedule.State
	reapply    bool
	logger     *zap.Logger
}

func runSearchFilters(ctx context.Context, cmd *cobra.Command, prof *profile.Profile, hist *history.History, zlog *zap.Logger, p *posting.Postings) (*posting.Postings, error) {
	steps := []filtering.Filter{
		filtering.NewAppliedHistory(mustFlagBool(cmd, "include-applied")),
		filtering.NewBlacklist(),
		filtering.NewAggregator(!mustFlagBool(cmd, "include-aggregators")),
		filtering.NewFelonFriendly(),
	}

	if !prof.FelonFriendlyOnly {
		filtering.DisableByName(steps, "felon_friendly", "profile does not require felon friendly postings")
	}

	deps := filtering.Deps{
		Profile: prof,
		History: hist,
		Logger:  logger.WithComponent(zlog, "filtering"),
	}
	return filtering.Run(ctx, deps, steps, p)
}

// scorePostings evaluates every posting and drops the ones below the
// threshold. Observed skill demand goes into the ledger even for rejected
// postings, the demand signal is useful either way.
func scorePostings(prof *profile.Profile, led *ledger.Ledger, p *posting.Postings, minScore int, zlog *zap.Logger) []scoredPosting {
	now := time.Now()
	var scored []scoredPosting
	for _, post := range p.Items {
		res := match.Score(prof, post, led.Knows)
		for _, skill := range res.RequiredSkills {
			led.Observe(skill, post.Identity(), now)
		}

		zlog.Info("scored posting",
			zap.String("title", post.Title),
			zap.String("company", post.Company),
			zap.Int("score", res.Score),
			zap.Strings("questions", res.Questions),
		)

		if res.Score < minScore {
			continue
		}
		scored = append(scored, scoredPosting{posting: post, result: res})
	}
	return scored
}

func (s *searchSession) handleAction(action string, scored *[]scoredPosting) error {
	switch action {
	case PromptYes:
		return s.enqueueAll(scored)
	case PromptNo:
		s.logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return errExit
	case PromptPickManually:
		return s.pickManually(scored)
	case PromptReportByCompany:
		report := make(map[string][]map[string]string)
		for _, sp := range *scored {
			company := sp.posting.Company
			report[company] = append(report[company], map[string]string{
				"title": sp.posting.Title,
				"url":   sp.posting.URL,
				"score": fmt.Sprintf("%d", sp.result.Score),
			})
		}
		pretty, _ := json.MarshalIndent(report, "", "  ")
		s.logger.Info(string(pretty), zap.Int("postings count", len(*scored)))
		return nil
	case PromptPostingsToFile:
		p := &posting.Postings{}
		for _, sp := range *scored {
			p.Items = append(p.Items, sp.posting)
		}
		filename, err := p.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		s.logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func (s *searchSession) enqueueAll(scored *[]scoredPosting) error {
	enqueued := 0
	for _, sp := range *scored {
		if err := s.enqueue(sp); err != nil {
			var dup *queue.DuplicateError
			if errors.As(err, &dup) {
				s.logger.Info("skipping duplicate posting",
					zap.String("id", dup.ID),
					zap.String("reason", dup.Reason),
				)
				continue
			}
			return err
		}
		enqueued++
	}

	if err := s.persist(); err != nil {
		return err
	}

	s.logger.Info("postings enqueued", zap.Int("count", enqueued))
	return errExit
}

func (s *searchSession) pickManually(scored *[]scoredPosting) error {
	for {
		if len(*scored) == 0 {
			return nil
		}

		items := make([]string, 0, len(*scored)+1)
		for _, sp := range *scored {
			items = append(items, fmt.Sprintf("%3d %s / %s / %s",
				sp.result.Score, sp.posting.Title, sp.posting.Company, sp.posting.URL,
			))
		}

		pick := promptui.Select{
			Label: "Choose a posting and press ENTER",
			Items: append(items, PromptBack),
		}

		idx, picked, err := pick.Run()
		if err != nil {
			return err
		}
		if picked == PromptBack {
			return nil
		}

		sp := (*scored)[idx]
		if err := s.enqueue(sp); err != nil {
			var dup *queue.DuplicateError
			if errors.As(err, &dup) {
				s.logger.Info("posting already pursued",
					zap.String("id", dup.ID),
					zap.String("reason", dup.Reason),
				)
			} else {
				return err
			}
		}
		if err := s.persist(); err != nil {
			return err
		}

		*scored = append((*scored)[:idx], (*scored)[idx+1:]...)
	}
}

// enqueue assigns the next pacing slot and adds the posting to the queue.
// The scheduler cursor moves only when the enqueue is accepted.
func (s *searchSession) enqueue(sp scoredPosting) error {
	now := time.Now()
	slot, nextState := schedule.NextSlot(s.schedState, s.schedCfg, now)

	id, err := s.queue.Enqueue(sp.posting, sp.result, slot, now, s.history.Lookup, s.reapply)
	if err != nil {
		return err
	}
	s.schedState = nextState

	s.logger.Info("enqueued posting",
		zap.String("id", id),
		zap.Int("score", sp.result.Score),
		zap.Time("scheduled_at", slot),
	)
	return nil
}

func (s *searchSession) persist() error {
	if err := s.store.SaveQueue(s.queue); err != nil {
		return err
	}
	if err := s.store.SaveLedger(s.ledger); err != nil {
		return err
	}
	return s.store.SaveSchedulerState(s.schedState)
}

func mustFlagBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		log.Fatalf("reading flag %s: %v", name, err)
	}
	return v
}
