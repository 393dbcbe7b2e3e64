package main

import (
	"github.com/spf13/cobra"
)

func newTemplatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List story templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			templates, err := a.stories.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			if len(templates) == 0 {
				a.console.Infof("No story templates available")
				return nil
			}
			a.console.Templates(templates)
			return nil
		},
	}
}

func newStoriesCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "stories",
		Short: "List your stories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			user, err := a.currentUser(ctx)
			if err != nil {
				return err
			}
			sessions, err := a.stories.ListSessions(ctx, user.UserID, all)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				a.console.Infof("No stories yet. Start one with `player play new`")
				return nil
			}
			a.console.Sessions(sessions)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include completed stories")
	return cmd
}

func newSummarizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <story-id>",
		Short: "Regenerate the summary of a story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.stories.SummarizeSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.console.Infof("%s", resp.UpdatedSummary)
			return nil
		},
	}
}
