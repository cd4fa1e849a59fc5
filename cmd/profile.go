package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"applyflow/internal/logger"
	"applyflow/internal/profile"
	"applyflow/internal/store"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect and update the candidate profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored profile",
	Run: func(cmd *cobra.Command, _ []string) {
		withProfile(cmd, func(env *profileEnv) error {
			out, err := yaml.Marshal(env.profile)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		})
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update profile fields",
	Run: func(cmd *cobra.Command, _ []string) {
		withProfile(cmd, func(env *profileEnv) error {
			changed := false

			if cmd.Flags().Changed("name") {
				env.profile.Name, _ = cmd.Flags().GetString("name")
				changed = true
			}
			if cmd.Flags().Changed("email") {
				env.profile.Email, _ = cmd.Flags().GetString("email")
				changed = true
			}
			if cmd.Flags().Changed("phone") {
				env.profile.Phone, _ = cmd.Flags().GetString("phone")
				changed = true
			}
			if cmd.Flags().Changed("summary") {
				env.profile.Summary, _ = cmd.Flags().GetString("summary")
				changed = true
			}
			if cmd.Flags().Changed("salary-floor") {
				env.profile.SalaryFloor, _ = cmd.Flags().GetInt("salary-floor")
				changed = true
			}
			if cmd.Flags().Changed("location") {
				env.profile.Locations, _ = cmd.Flags().GetStringSlice("location")
				changed = true
			}
			if cmd.Flags().Changed("blacklist") {
				env.profile.Blacklist, _ = cmd.Flags().GetStringSlice("blacklist")
				changed = true
			}
			if cmd.Flags().Changed("felon-friendly-only") {
				env.profile.FelonFriendlyOnly, _ = cmd.Flags().GetBool("felon-friendly-only")
				changed = true
			}

			if !changed {
				return fmt.Errorf("nothing to update, pass at least one flag")
			}

			if err := env.store.SaveProfile(env.profile); err != nil {
				return err
			}
			env.logger.Info("profile updated")
			return nil
		})
	},
}

var profileAddSkillCmd = &cobra.Command{
	Use:   "add-skill <skill>...",
	Short: "Add skills to the profile",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withProfile(cmd, func(env *profileEnv) error {
			now := time.Now()
			added := 0
			for _, skill := range args {
				if env.profile.AddSkill(skill, now) {
					added++
				}
			}
			if err := env.store.SaveProfile(env.profile); err != nil {
				return err
			}
			env.logger.Info("skills added", zap.Int("added", added), zap.Int("total", len(env.profile.Skills)))
			return nil
		})
	},
}

var profileSkillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Report observed skill demand, biggest gaps first",
	Run: func(cmd *cobra.Command, _ []string) {
		withProfile(cmd, func(env *profileEnv) error {
			led, err := env.store.LoadLedger()
			if err != nil {
				return err
			}

			stats := led.ByOpportunity()
			if len(stats) == 0 {
				fmt.Println("no skill demand observed yet")
				return nil
			}

			fmt.Printf("%-30s %8s %10s %7s  %s\n", "SKILL", "DEMAND", "INTERVIEWS", "OFFERS", "HAVE")
			for _, stat := range stats {
				have := ""
				if env.profile.HasSkill(stat.Skill) {
					have = "yes"
				}
				fmt.Printf("%-30s %8d %10d %7d  %s\n",
					stat.Skill, stat.Seen, stat.Interviews, stat.Offers, have)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileShowCmd, profileSetCmd, profileAddSkillCmd, profileSkillsCmd)

	profileSetCmd.Flags().String("name", "", "candidate name")
	profileSetCmd.Flags().String("email", "", "contact email")
	profileSetCmd.Flags().String("phone", "", "contact phone")
	profileSetCmd.Flags().String("summary", "", "short professional summary")
	profileSetCmd.Flags().Int("salary-floor", 0, "minimum acceptable yearly salary")
	profileSetCmd.Flags().StringSlice("location", nil, "acceptable locations, may repeat")
	profileSetCmd.Flags().StringSlice("blacklist", nil, "companies to never apply to, may repeat")
	profileSetCmd.Flags().Bool("felon-friendly-only", false, "only pursue postings open to applicants with a record")
}

type profileEnv struct {
	store   *store.Store
	profile *profile.Profile
	logger  *zap.Logger
}

func withProfile(cmd *cobra.Command, fn func(env *profileEnv) error) {
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

	prof, err := st.LoadProfile()
	if err != nil {
		zlog.Fatal("loading the profile", zap.Error(err))
	}

	if err := fn(&profileEnv{store: st, profile: prof, logger: zlog}); err != nil {
		zlog.Fatal(cmd.Name()+" failed", zap.Error(err))
	}
}
