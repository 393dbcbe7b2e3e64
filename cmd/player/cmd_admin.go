package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"novel-client/internal/client"
	"novel-client/internal/models"
)

func newAdminCmd(a *app) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage story types, templates and prompts (requires ROLE_ADMIN)",
	}
	admin.AddCommand(newAdminTypesCmd(a), newAdminStoriesCmd(a), newAdminPromptsCmd(a))
	return admin
}

// adminAPI собирает AdminAPI с токеном вошедшего администратора.
func (a *app) adminAPI(ctx context.Context) (client.AdminAPI, error) {
	user, err := a.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !models.HasRole(user.Roles, models.RoleAdmin) {
		return nil, fmt.Errorf("%w: %s is not an administrator", models.ErrForbidden, user.Username)
	}
	return client.NewAdminClient(a.api, client.BearerToken(user.AccessToken), a.log)
}

func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render response: %w", err)
	}
	fmt.Fprintln(a.out, string(data))
	return nil
}

// confirmed спрашивает подтверждение; отказ - не ошибка.
func (a *app) confirmed(prompt string) (bool, error) {
	ok, err := a.console.Confirm(prompt, a.assumeYes)
	if err != nil {
		return false, err
	}
	if !ok {
		a.console.Infof("Cancelled")
	}
	return ok, nil
}

// adminRun - общий каркас админских команд.
func adminRun(a *app, fn func(ctx context.Context, api client.AdminAPI, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		api, err := a.adminAPI(cmd.Context())
		if err != nil {
			return err
		}
		return fn(cmd.Context(), api, args)
	}
}

// --- Типы историй ---

type storyTypeFlags struct {
	name, description, extraction, analysis, summary string
}

func (f *storyTypeFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "Story type name")
	fs.StringVar(&f.description, "description", "", "Description")
	fs.StringVar(&f.extraction, "extraction-prompt", "", "Initial extraction prompt")
	fs.StringVar(&f.analysis, "analysis-prompt", "", "Dynamic analysis prompt")
	fs.StringVar(&f.summary, "summary-prompt", "", "Summary prompt")
}

// apply переносит в in только заданные флаги.
func (f *storyTypeFlags) apply(fs *pflag.FlagSet, in *models.StoryTypeInput) {
	if fs.Changed("name") {
		in.Name = f.name
	}
	if fs.Changed("description") {
		d := f.description
		in.Description = &d
	}
	if fs.Changed("extraction-prompt") {
		in.InitialExtractionPrompt = f.extraction
	}
	if fs.Changed("analysis-prompt") {
		in.DynamicAnalysisPrompt = f.analysis
	}
	if fs.Changed("summary-prompt") {
		in.SummaryPrompt = f.summary
	}
}

func newAdminTypesCmd(a *app) *cobra.Command {
	types := &cobra.Command{Use: "types", Short: "Story types"}

	list := &cobra.Command{
		Use:  "list",
		Args: cobra.NoArgs,
		RunE: adminRun(a, func(ctx context.Context, api client.AdminAPI, _ []string) error {
			items, err := api.ListStoryTypes(ctx)
			if err != nil {
				return err
			}
			return a.printJSON(items)
		}),
	}

	get := &cobra.Command{
		Use:  "get <id>",
		Args: cobra.ExactArgs(1),
		RunE: adminRun(a, func(ctx context.Context, api client.AdminAPI, args []string) error {
			st, err := api.GetStoryType(ctx, args[0])
			if err != nil {
				return err
			}
			return a.printJSON(st)
		}),
	}

	var createFlags storyTypeFlags
	create := &cobra.Command{Use: "create", Args: cobra.NoArgs}
	createFlags.register(create.Flags())
	for _, name := range []string{"name", "extraction-prompt", "analysis-prompt", "summary-prompt"} {
		_ = create.MarkFlagRequired(name)
	}
	create.RunE = adminRun(a, func(ctx context.Context, api client.AdminAPI, _ []string) error {
		var in models.StoryTypeInput
		createFlags.apply(create.Flags(), &in)
		st, err := api.CreateStoryType(ctx, in)
		if err != nil {
			return err
		}
		return a.printJSON(st)
	})

	var updateFlags storyTypeFlags
	update := &cobra.Command{Use: "update <id>", Args: cobra.ExactArgs(1)}
	updateFlags.register(update.Flags())
	update.RunE = adminRun(a, func(ctx context.Context, api client.AdminAPI, args []string) error {
		current, err := api.GetStoryType(ctx, args[0])
		if err != nil {
			return err
		}
		in := current.StoryTypeInput
		updateFlags.apply(update.Flags(), &in)
		st, err := api.UpdateStoryType(ctx, args[0], in)
		if err != nil {
			return err
		}
		return a.printJSON(st)
	})

	del := &cobra.Command{
		Use:  "delete <id>",
		Args: cobra.ExactArgs(1),
		RunE: adminRun(a, func(ctx context.Context, api client.AdminAPI, args []string) error {
			if ok, err := a.confirmed(fmt.Sprintf("Delete story type %s?", args[0])); err != nil || !ok {
				return err
			}
			if err := api.DeleteStoryType(ctx, args[0]); err != nil {
				return err
			}
			a.console.Infof("Story type %s deleted", args[0])
			return nil
		}),
	}

	types.AddCommand(list, get, create, update, del)
	return types
}

// --- Шаблоны ---

type baseStoryFlags struct {
	storyType, title, description, context, initialPrompt, summary, language string
}

func (f *baseStoryFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.storyType, "type", "", "Story type id")
	fs.StringVar(&f.title, "title", "", "Title")
	fs.StringVar(&f.description, "description", "", "Description")
	fs.StringVar(&f.context, "context", "", "Original tale context")
	fs.StringVar(&f.initialPrompt, "initial-prompt", "", "Initial system prompt")
	fs.StringVar(&f.summary, "summary", "", "Initial summary")
	fs.StringVar(&f.language, "language", "", "Story language")
}

func (f *baseStoryFlags) apply(fs *pflag.FlagSet, in *models.BaseStoryInput) {
	set := func(flag string, dst *string, v string) {
		if fs.Changed(flag) {
			*dst = v
		}
	}
	set("type", &in.StoryTypeID, f.storyType)
	set("title", &in.Title, f.title)
	set("description", &in.Description, f.description)
	set("context", &in.OriginalTaleContext, f.context)
	set("initial-prompt", &in.InitialSystemPrompt, f.initialPrompt)
	set("summary", &in.InitialSummary, f.summary)
	set("language", &in.Language, f.language)
}

func newAdminStoriesCmd(a *app) *cobra.Command {
	stories := &cobra.Command{Use: "stories", Short: "Story templates (base stories)"}

	get := &cobra.Command{
		Use:  "get <id>",
		Args: cobra.ExactArgs(1),
		RunE: adminRun(a, func(ctx context.Context, api client.AdminAPI, args []string) error {
			bs, err := api.GetBaseStory(ctx, args[0])
			if err != nil {
				return err
			}
			return a.printJSON(bs)
		}),
	}

	var createFlags baseStoryFlags
	create := &cobra.Command{Use: "create", Args: cobra.NoArgs}
	createFlags.register(create.Flags())
	_ = create.MarkFlagRequired("type")
	_ = create.MarkFlagRequired("title")
	create.RunE = adminRun(a, func(ctx context.Context, api client.AdminAPI, _ []string) error {
		var in models.BaseStoryInput
		createFlags.apply(create.Flags(), &in)
		ref, err := api.CreateBaseStory(ctx, in)
		if err != nil {
			return err
		}
		return a.printJSON(ref)
	})

	var updateFlags baseStoryFlags
	update := &cobra.Command{Use: "update <id>", Args: cobra.ExactArgs(1)}
	updateFlags.register(update.Flags())
	update.RunE = adminRun(a, func(ctx context.Context, api client.AdminAPI, args []string) error {
		current, err := api.GetBaseStory(ctx, args[0])
		if err != nil {
			return err
		}
		in := models.BaseStoryInput{
			StoryTypeID:         current.StoryTypeID,
			Title:               current.Title,
			Description:         current.Description,
			OriginalTaleContext: current.OriginalTaleContext,
			InitialSystemPrompt: current.InitialSystemPrompt,
			InitialSummary:      current.InitialSummary,
			Language:            current.Language,
		}
		if in.StoryTypeID == "" && current.StoryType != nil {
			in.StoryTypeID = current.StoryType.ID
		}
		updateFlags.apply(update.Flags(), &in)
		ref, err := api.UpdateBaseStory(ctx, args[0], in)
		if err != nil {
			return err
		}
		return a.printJSON(ref)
	})

	del := &cobra.Command{
		Use:  "delete <id>",
		Args: cobra.ExactArgs(1),
		RunE: adminRun(a, func(ctx context.Context, api client.AdminAPI, args []string) error {
			if ok, err := a.confirmed(fmt.Sprintf("Delete story template %s?", args[0])); err != nil || !ok {
				return err
			}
			if err := api.DeleteBaseStory(ctx, args[0]); err != nil {
				return err
			}
			a.console.Infof("Story template %s deleted", args[0])
			return nil
		}),
	}

	toggle := func(use string, active bool) *cobra.Command {
		return &cobra.Command{
			Use:  use + " <id>",
			Args: cobra.ExactArgs(1),
			RunE: adminRun(a, func(ctx context.Context, api client.AdminAPI, args []string) error {
				resp, err := api.SetBaseStoryActive(ctx, args[0], active)
				if err != nil {
					return err
				}
				return a.printJSON(resp)
			}),
		}
	}

	stories.AddCommand(get, create, update, del, toggle("activate", true), toggle("deactivate", false))
	return stories
}

// --- Промпты ---

func newAdminPromptsCmd(a *app) *cobra.Command {
	prompts := &cobra.Command{Use: "prompts", Short: "System prompts and their assignment to story types"}

	list := &cobra.Command{
		Use:  "list",
		Args: cobra.NoArgs,
		RunE: adminRun(a, func(ctx context.Context, api client.AdminAPI, _ []string) error {
			items, err := api.ListPrompts(ctx)
			if err != nil {
				return err
			}
			return a.printJSON(items)
		}),
	}

	var (
		name, systemPrompt string
		turnStart, turnEnd int
	)
	create := &cobra.Command{Use: "create", Args: cobra.NoArgs}
	create.Flags().StringVar(&name, "name", "", "Prompt name")
	create.Flags().StringVar(&systemPrompt, "system-prompt", "", "System prompt text")
	create.Flags().IntVar(&turnStart, "turn-start", 0, "First turn the prompt applies to")
	create.Flags().IntVar(&turnEnd, "turn-end", 0, "Last turn the prompt applies to (open-ended when not set)")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("system-prompt")
	create.RunE = adminRun(a, func(ctx context.Context, api client.AdminAPI, _ []string) error {
		in := models.PromptInput{Name: name, SystemPrompt: systemPrompt, TurnStart: turnStart}
		if create.Flags().Changed("turn-end") {
			end := turnEnd
			in.TurnEnd = &end
		}
		p, err := api.CreatePrompt(ctx, in)
		if err != nil {
			return err
		}
		return a.printJSON(p)
	})

	del := &cobra.Command{
		Use:  "delete <id>",
		Args: cobra.ExactArgs(1),
		RunE: adminRun(a, func(ctx context.Context, api client.AdminAPI, args []string) error {
			if ok, err := a.confirmed(fmt.Sprintf("Delete prompt %s?", args[0])); err != nil || !ok {
				return err
			}
			if err := api.DeletePrompt(ctx, args[0]); err != nil {
				return err
			}
			a.console.Infof("Prompt %s deleted", args[0])
			return nil
		}),
	}

	assign := &cobra.Command{
		Use:  "assign <prompt-id> <story-type-id>",
		Args: cobra.ExactArgs(2),
		RunE: adminRun(a, func(ctx context.Context, api client.AdminAPI, args []string) error {
			if err := api.AssignPrompt(ctx, args[0], args[1]); err != nil {
				return err
			}
			a.console.Infof("Prompt %s assigned to story type %s", args[0], args[1])
			return nil
		}),
	}

	remove := &cobra.Command{
		Use:  "remove <story-type-id> <prompt-id>",
		Args: cobra.ExactArgs(2),
		RunE: adminRun(a, func(ctx context.Context, api client.AdminAPI, args []string) error {
			if ok, err := a.confirmed(fmt.Sprintf("Remove prompt %s from story type %s?", args[1], args[0])); err != nil || !ok {
				return err
			}
			if err := api.RemovePrompt(ctx, args[0], args[1]); err != nil {
				return err
			}
			a.console.Infof("Prompt %s removed from story type %s", args[1], args[0])
			return nil
		}),
	}

	prompts.AddCommand(list, create, del, assign, remove)
	return prompts
}
