package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"novel-client/internal/models"
	"novel-client/internal/session"
)

var (
	// ErrInputClosed возвращается, когда ввод закончился (EOF).
	ErrInputClosed = errors.New("input closed")
	// ErrInvalidInput - строку не удалось разобрать, можно спросить снова.
	ErrInvalidInput = errors.New("invalid input")
)

// Команды игрового цикла.
const (
	CommandRetry     = "retry"
	CommandComplete  = "complete"
	CommandContinue  = "continue"
	CommandSummarize = "summarize"
	CommandQuit      = "quit"
	CommandHelp      = "help"
)

// Input - разобранная строка ввода игрока: либо действие, либо команда.
type Input struct {
	Action  *session.Action
	Command string
}

// Console - терминальный ввод/вывод игрового клиента.
type Console struct {
	in  *bufio.Scanner
	out io.Writer

	title     *color.Color
	narration *color.Color
	player    *color.Color
	choice    *color.Color
	warn      *color.Color
	errc      *color.Color
	dim       *color.Color

	// ID записей истории, которые уже выведены
	printed map[uuid.UUID]struct{}
}

// New создает Console. noColor отключает цвета (например, для вывода в файл).
func New(in io.Reader, out io.Writer, noColor bool) *Console {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
		return c
	}
	return &Console{
		in:        bufio.NewScanner(in),
		out:       out,
		title:     mk(color.FgCyan, color.Bold),
		narration: mk(color.FgWhite),
		player:    mk(color.FgGreen),
		choice:    mk(color.FgYellow),
		warn:      mk(color.FgMagenta),
		errc:      mk(color.FgRed),
		dim:       mk(color.Faint),
		printed:   make(map[uuid.UUID]struct{}),
	}
}

// Reset забывает выведенные записи, следующий RenderView выведет всю историю.
func (c *Console) Reset() {
	c.printed = make(map[uuid.UUID]struct{})
}

// RenderView выводит новые записи истории, варианты выбора и последнюю ошибку.
// Спекулятивные записи не выводятся: к моменту вызова они либо подтверждены, либо откатены.
func (c *Console) RenderView(v session.View) {
	if len(c.printed) == 0 && v.StoryID != "" {
		c.title.Fprintf(c.out, "== %s ==\n", displayTitle(v))
		if v.Summary != "" {
			c.dim.Fprintf(c.out, "%s\n", v.Summary)
		}
	}

	for _, rec := range v.History {
		if rec.Speculative {
			continue
		}
		if _, ok := c.printed[rec.ID]; ok {
			continue
		}
		c.printed[rec.ID] = struct{}{}
		switch rec.Kind {
		case session.KindNarration:
			c.narration.Fprintf(c.out, "\n%s\n", rec.Text)
		case session.KindPlayerChoice:
			c.player.Fprintf(c.out, "\n> %s\n", rec.Text)
		case session.KindPlayerCustomInput:
			c.player.Fprintf(c.out, "\n> (%s)\n", rec.Text)
		}
	}

	if v.LastError != nil {
		c.errc.Fprintf(c.out, "\nError: %v\n", v.LastError)
		if v.Pending != nil {
			c.dim.Fprintf(c.out, "Type /%s to resend the last action.\n", CommandRetry)
		}
	}

	switch {
	case v.State == session.Completed:
		c.warn.Fprintln(c.out, "\nThe story is complete.")
	case v.NoChoices:
		c.warn.Fprintln(c.out, "\nNo choices available. Describe what you do.")
	}
	if len(v.Choices) > 0 {
		fmt.Fprintln(c.out)
		for i, ch := range v.Choices {
			c.choice.Fprintf(c.out, "  %d. %s\n", i+1, ch)
		}
	}
}

func displayTitle(v session.View) string {
	if v.Title != "" {
		return fmt.Sprintf("%s (turn %d)", v.Title, v.TurnNumber)
	}
	return fmt.Sprintf("Story %s (turn %d)", v.StoryID, v.TurnNumber)
}

// ReadInput читает одну строку ввода и разбирает её относительно текущих вариантов:
// номер варианта - выбор, "/команда" - команда, остальное - произвольное действие.
func (c *Console) ReadInput(choices []string) (Input, error) {
	fmt.Fprint(c.out, "\n> ")
	line, err := c.readLine()
	if err != nil {
		return Input{}, err
	}
	return ParseInput(line, choices)
}

// ParseInput разбирает строку ввода. Пустая строка - ошибка.
func ParseInput(line string, choices []string) (Input, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Input{}, fmt.Errorf("%w: empty input", ErrInvalidInput)
	}
	if strings.HasPrefix(line, "/") {
		cmd := strings.ToLower(strings.TrimPrefix(line, "/"))
		switch cmd {
		case CommandRetry, CommandComplete, CommandContinue, CommandSummarize, CommandQuit, CommandHelp:
			return Input{Command: cmd}, nil
		}
		return Input{}, fmt.Errorf("%w: unknown command /%s", ErrInvalidInput, cmd)
	}
	if n, err := strconv.Atoi(line); err == nil {
		if n < 1 || n > len(choices) {
			return Input{}, fmt.Errorf("%w: choice %d is out of range", ErrInvalidInput, n)
		}
		return Input{Action: &session.Action{Choice: choices[n-1]}}, nil
	}
	return Input{Action: &session.Action{CustomInput: line}}, nil
}

// Help выводит список команд игрового цикла.
func (c *Console) Help() {
	c.dim.Fprintf(c.out, "Enter a choice number or describe your own action (up to %d characters).\n", models.MaxCustomInputLength)
	c.dim.Fprintf(c.out, "Commands: /%s /%s /%s /%s /%s\n", CommandRetry, CommandComplete, CommandContinue, CommandSummarize, CommandQuit)
}

// Confirm спрашивает подтверждение опасной операции. assumeYes пропускает вопрос (--yes).
func (c *Console) Confirm(prompt string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	c.warn.Fprintf(c.out, "%s [y/N]: ", prompt)
	line, err := c.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Prompt задает вопрос и возвращает ответ (без пробелов по краям).
func (c *Console) Prompt(label string) (string, error) {
	fmt.Fprintf(c.out, "%s: ", label)
	line, err := c.readLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *Console) readLine() (string, error) {
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", ErrInputClosed
	}
	return c.in.Text(), nil
}

// Infof / Errorf - служебные сообщения.
func (c *Console) Infof(format string, args ...any) {
	c.dim.Fprintf(c.out, format+"\n", args...)
}

func (c *Console) Errorf(format string, args ...any) {
	c.errc.Fprintf(c.out, format+"\n", args...)
}

// Templates выводит таблицу шаблонов.
func (c *Console) Templates(items []models.Template) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tTITLE\tTYPE\tLANG")
	for i, t := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, t.ID, t.Title, t.StoryTypeName, t.Language)
	}
	_ = tw.Flush()
}

// Sessions выводит таблицу сессий пользователя.
func (c *Console) Sessions(items []models.SessionMetadata) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tTITLE\tTURN\tSTATUS\tUPDATED")
	for i, s := range items {
		status := "active"
		if s.IsCompleted {
			status = "completed"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", i+1, s.ID, s.Title, s.CurrentTurnNumber, status, s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
}
