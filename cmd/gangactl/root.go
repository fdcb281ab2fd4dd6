package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/bootstrap"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/player"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/portal"
	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/shared-libs/dto"
)

type opener func(ctx context.Context) (*bootstrap.App, error)

// cli carries flag values and the lazily opened app shared by every subcommand.
type cli struct {
	open opener
	app  *bootstrap.App

	profile string
	name    string
	email   string
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:           "gangactl",
		Short:         "Inspect and play the Ganga portal gamification state",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if c.app == nil {
				return nil
			}
			err := c.app.Close()
			c.app = nil
			return err
		},
	}

	defaultProfile := os.Getenv("GANGA_PROFILE")
	if defaultProfile == "" {
		defaultProfile = "local"
	}
	root.PersistentFlags().StringVarP(&c.profile, "profile", "p", defaultProfile, "profile id to act as")
	root.PersistentFlags().StringVar(&c.name, "name", "", "account display name, as an auth token would carry it")
	root.PersistentFlags().StringVar(&c.email, "email", "", "account email used for directory lookups")

	root.AddCommand(
		c.catalogCmd(),
		c.progressCmd(),
		c.leaderboardCmd(),
		c.dailyCmd(),
		c.nameCmd(),
		c.quizCmd(),
		c.trashCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the gangactl version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "gangactl", dto.Version)
			},
		},
	)
	return root
}

func (c *cli) service(cmd *cobra.Command) (portal.Service, error) {
	if c.app == nil {
		app, err := c.open(cmd.Context())
		if err != nil {
			return nil, err
		}
		c.app = app
	}
	return c.app.Service, nil
}

func (c *cli) identity() (player.Identity, error) {
	if c.profile == "" {
		return player.Identity{}, errors.New("--profile must not be empty")
	}
	return player.Identity{ProfileID: c.profile, Name: c.name, Email: c.email}, nil
}
