package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/gamification"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/leaderboard"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/portal"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/progress"
)

func (c *cli) catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List badges, achievements and the streak multiplier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			catalog := svc.Catalog()
			fmt.Fprintln(out, "Badges:")
			for _, b := range catalog.Badges {
				fmt.Fprintf(out, "  %-12s %5d points  %s\n", b.ID, b.Threshold, b.Label)
			}
			fmt.Fprintln(out, "Achievements:")
			for _, a := range catalog.Achievements {
				fmt.Fprintf(out, "  %-14s %s\n", a.ID, a.Label)
			}
			fmt.Fprintf(out, "Multiplier: +%.1f per streak day, capped at x%.1f\n", catalog.Multiplier.PerStreakDay, catalog.Multiplier.Cap)
			return nil
		},
	}
}

// ===== Progress =====

func (c *cli) progressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show or change a profile's progress",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print points, streak, badges and achievements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}
			p, err := svc.Progress(cmd.Context(), c.profile)
			if err != nil {
				return err
			}
			printProgress(cmd.OutOrStdout(), p)
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore zeroed progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}
			p, err := svc.ResetProgress(cmd.Context(), c.profile)
			if err != nil {
				return err
			}
			printProgress(cmd.OutOrStdout(), p)
			return nil
		},
	}

	var mission, event string
	score := &cobra.Command{
		Use:   "score <base-points>",
		Short: "Record a scoring event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("base points must be an integer: %w", err)
			}
			id, err := c.identity()
			if err != nil {
				return err
			}
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}
			result, err := svc.RecordScore(cmd.Context(), id, portal.ScoreInput{
				BasePoints: base,
				Meta:       gamification.ScoreMeta{Mission: gamification.Mission(mission), Event: gamification.Event(event)},
			})
			if err != nil {
				return err
			}
			printScore(cmd.OutOrStdout(), *result)
			printProgress(cmd.OutOrStdout(), result.Progress)
			return nil
		},
	}
	score.Flags().StringVar(&mission, "mission", string(gamification.MissionQuiz), "mission tag (quiz or trash)")
	score.Flags().StringVar(&event, "event", string(gamification.EventProgress), "event tag (progress or completed)")

	cmd.AddCommand(show, reset, score)
	return cmd
}

// ===== Leaderboard =====

func (c *cli) leaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "leaderboard",
		Aliases: []string{"lb"},
		Short:   "Show, search or reset the leaderboard",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the top entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}
			printBoard(cmd.OutOrStdout(), svc.Leaderboard(cmd.Context()))
			return nil
		},
	}

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-search entries by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}
			matches := svc.SearchLeaderboard(cmd.Context(), strings.Join(args, " "))
			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintln(out, "no matches")
				return nil
			}
			for _, m := range matches {
				fmt.Fprintf(out, "%2d. %-24s %d\n", m.Rank, m.Name, m.Score)
			}
			return nil
		},
	}

	submit := &cobra.Command{
		Use:   "submit",
		Short: "Post the profile's current points under its resolved name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := c.identity()
			if err != nil {
				return err
			}
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}
			board, err := svc.SubmitLeaderboard(cmd.Context(), id)
			if err != nil {
				return err
			}
			printBoard(cmd.OutOrStdout(), board)
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Clear every entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}
			svc.ResetLeaderboard(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "leaderboard cleared")
			return nil
		},
	}

	cmd.AddCommand(show, search, submit, reset)
	return cmd
}

// ===== Daily reward =====

func (c *cli) dailyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Check or claim the daily reward",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether today's reward is claimable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}
			st, err := svc.DailyStatus(cmd.Context(), c.profile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			last := st.LastClaimDate
			if last == "" {
				last = "never"
			}
			fmt.Fprintf(out, "today:      %s\n", st.Today)
			fmt.Fprintf(out, "last claim: %s\n", last)
			fmt.Fprintf(out, "claimable:  %t (%d base points)\n", st.Claimable, st.BaseReward)
			return nil
		},
	}

	claim := &cobra.Command{
		Use:   "claim",
		Short: "Claim today's reward",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := c.identity()
			if err != nil {
				return err
			}
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}
			result, err := svc.ClaimDaily(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.AlreadyClaimed {
				fmt.Fprintf(out, "already claimed for %s\n", result.ClaimDate)
				return nil
			}
			fmt.Fprintf(out, "claimed for %s\n", result.ClaimDate)
			if result.Score != nil {
				printScore(out, *result.Score)
			}
			return nil
		},
	}

	cmd.AddCommand(status, claim)
	return cmd
}

// ===== Player name =====

func (c *cli) nameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "name",
		Short: "Show or set the stored player name",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the resolved display name and where it came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := c.identity()
			if err != nil {
				return err
			}
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}
			profile, err := svc.Player(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", profile.Name, profile.Source)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <name>",
		Short: "Store a player name for the profile",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.identity()
			if err != nil {
				return err
			}
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}
			profile, err := svc.SetPlayerName(cmd.Context(), id, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", profile.Name, profile.Source)
			return nil
		},
	}

	cmd.AddCommand(get, set)
	return cmd
}

func printProgress(out io.Writer, p gamification.Progress) {
	last := p.LastPlayDate
	if last == "" {
		last = "never"
	}
	fmt.Fprintf(out, "points:       %d\n", p.Points)
	fmt.Fprintf(out, "streak:       %d\n", p.Streak)
	fmt.Fprintf(out, "last played:  %s\n", last)
	fmt.Fprintf(out, "games played: %d\n", p.GamesPlayed)
	fmt.Fprintf(out, "badges:       %s\n", joinOrNone(p.Badges.Items()))
	fmt.Fprintf(out, "achievements: %s\n", joinOrNone(p.Achievements.Items()))
}

func printScore(out io.Writer, result progress.ScoreResult) {
	fmt.Fprintf(out, "+%d points (total %d)\n", result.Unlocks.Delta, result.Progress.Points)
	for _, id := range result.Unlocks.NewBadges {
		fmt.Fprintf(out, "badge unlocked: %s\n", id)
	}
	for _, id := range result.Unlocks.NewAchievements {
		fmt.Fprintf(out, "achievement unlocked: %s\n", id)
	}
}

func printBoard(out io.Writer, board []leaderboard.Entry) {
	if len(board) == 0 {
		fmt.Fprintln(out, "leaderboard is empty")
		return
	}
	for i, e := range board {
		fmt.Fprintf(out, "%2d. %-24s %d\n", i+1, e.Name, e.Score)
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
