package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"novel-client/internal/console"
	"novel-client/internal/models"
	"novel-client/internal/session"
)

// gameExit - чем закончился игровой цикл.
type gameExit int

const (
	exitQuit gameExit = iota
	exitNewStory
)

func newPlayCmd(a *app) *cobra.Command {
	play := &cobra.Command{
		Use:   "play",
		Short: "Play a story",
	}

	var title string
	newCmd := &cobra.Command{
		Use:   "new [template-id|#]",
		Short: "Start a new story from a template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl, err := a.controllerForUser(ctx)
			if err != nil {
				return err
			}
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			var t *string
			if title != "" {
				t = &title
			}
			return a.playNew(ctx, ctrl, arg, t)
		},
	}
	newCmd.Flags().StringVarP(&title, "title", "t", "", "Story title (the backend picks one when empty)")

	resumeCmd := &cobra.Command{
		Use:   "resume [story-id|#]",
		Short: "Resume one of your stories",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl, err := a.controllerForUser(ctx)
			if err != nil {
				return err
			}
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			storyID, err := a.pickSession(ctx, ctrl.UserID(), arg)
			if err != nil {
				return err
			}
			if err := ctrl.Resume(ctx, storyID); err != nil {
				return err
			}
			exit, err := runGame(ctx, ctrl, a.console, a.log)
			if err != nil || exit != exitNewStory {
				return err
			}
			return a.playNew(ctx, ctrl, "", nil)
		},
	}

	play.AddCommand(newCmd, resumeCmd)
	return play
}

func (a *app) controllerForUser(ctx context.Context) (*session.Controller, error) {
	user, err := a.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return a.newController(user.UserID)
}

// playNew запускает новые истории, пока игрок выбирает "Start a new story".
func (a *app) playNew(ctx context.Context, ctrl *session.Controller, templateArg string, title *string) error {
	for {
		templateID, err := a.pickTemplate(ctx, templateArg)
		if err != nil {
			return err
		}
		a.console.Reset()
		if err := ctrl.Start(ctx, templateID, title); err != nil {
			// Сессия создана, но первый ход не сгенерировался: игрок может повторить его в цикле.
			if ctrl.State() == session.Idle {
				return err
			}
		}
		exit, err := runGame(ctx, ctrl, a.console, a.log)
		if err != nil || exit != exitNewStory {
			return err
		}
		templateArg, title = "", nil
	}
}

// pickTemplate принимает ID шаблона или его номер в списке. Пустой arg - спросить игрока.
func (a *app) pickTemplate(ctx context.Context, arg string) (string, error) {
	templates, err := a.stories.ListTemplates(ctx)
	if err != nil {
		return "", err
	}
	if len(templates) == 0 {
		return "", fmt.Errorf("no story templates available")
	}
	ids := make([]string, len(templates))
	for i, t := range templates {
		ids[i] = t.ID
	}
	if arg == "" {
		a.console.Templates(templates)
		if arg, err = a.console.Prompt("Template #"); err != nil {
			return "", err
		}
	}
	return pickByIndexOrID(ids, arg)
}

func (a *app) pickSession(ctx context.Context, userID, arg string) (string, error) {
	if arg != "" {
		if _, err := strconv.Atoi(arg); err != nil {
			return arg, nil
		}
	}
	sessions, err := a.stories.ListSessions(ctx, userID, true)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "", fmt.Errorf("you have no stories yet")
	}
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	if arg == "" {
		a.console.Sessions(sessions)
		if arg, err = a.console.Prompt("Story #"); err != nil {
			return "", err
		}
	}
	return pickByIndexOrID(ids, arg)
}

func pickByIndexOrID(ids []string, arg string) (string, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(ids) {
			return "", fmt.Errorf("number %d is out of range 1..%d", n, len(ids))
		}
		return ids[n-1], nil
	}
	for _, id := range ids {
		if id == arg {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", models.ErrNotFound, arg)
}

// runGame - цикл "показать состояние, прочитать ввод, выполнить" до выхода игрока.
// Ошибки бэкенда не прерывают цикл: контроллер хранит их в View, игрок может повторить.
func runGame(ctx context.Context, ctrl *session.Controller, con *console.Console, log *zap.Logger) (gameExit, error) {
	con.Help()
	for {
		if err := ctx.Err(); err != nil {
			return exitQuit, nil
		}
		v := ctrl.View()
		con.RenderView(v)

		in, err := con.ReadInput(v.Choices)
		switch {
		case errors.Is(err, console.ErrInputClosed):
			return exitQuit, nil
		case errors.Is(err, console.ErrInvalidInput):
			con.Errorf("%v", err)
			continue
		case err != nil:
			return exitQuit, err
		}

		var opErr error
		switch {
		case in.Command == console.CommandQuit:
			return exitQuit, nil
		case in.Command == console.CommandHelp:
			con.Help()
		case in.Command == console.CommandRetry:
			opErr = ctrl.Retry(ctx)
		case in.Command == console.CommandComplete:
			opErr = ctrl.Complete(ctx)
		case in.Command == console.CommandContinue:
			opErr = ctrl.Continue(ctx)
		case in.Command == console.CommandSummarize:
			if opErr = ctrl.Summarize(ctx); opErr == nil {
				con.Infof("Summary: %s", ctrl.View().Summary)
			}
		case v.State == session.Completed && in.Action.Choice == session.ChoiceReturnToSelection:
			return exitQuit, nil
		case v.State == session.Completed && in.Action.Choice == session.ChoiceStartNewStory:
			return exitNewStory, nil
		default:
			opErr = ctrl.Submit(ctx, *in.Action)
		}

		switch {
		case opErr == nil:
		case errors.Is(opErr, session.ErrValidation), errors.Is(opErr, session.ErrStaleState):
			con.Errorf("%v", opErr)
		default:
			// Ошибка уже в View().LastError и будет выведена при следующей отрисовке
			log.Debug("Operation failed", zap.Error(opErr))
		}
	}
}
