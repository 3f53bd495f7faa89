package cmds

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/healthbot/pkg/assistant"
	"github.com/go-go-golems/healthbot/pkg/conversation"
	"github.com/go-go-golems/healthbot/pkg/events"
	"github.com/go-go-golems/healthbot/pkg/prompts"
	"github.com/go-go-golems/healthbot/pkg/ui"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tcnksm/go-input"
	"golang.org/x/sync/errgroup"
)

func NewChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive health assistant session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			noTUI, _ := cmd.Flags().GetBool("no-tui")
			glamourStyle, _ := cmd.Flags().GetString("glamour-style")

			session, err := NewSession(viper.GetViper())
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), session, cmd.OutOrStdout(), chatOptions{
				TUI:          useTUI(noTUI),
				GlamourStyle: glamourStyle,
				LogFile:      viper.GetString("log-file"),
			})
		},
	}
	cmd.Flags().Bool("no-tui", false, "Use the line-based interface even on a terminal")
	cmd.Flags().String("glamour-style", "dark", "Markdown style of the chat UI (dark, light, notty, auto)")
	return cmd
}

func useTUI(noTUI bool) bool {
	return !noTUI && isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

type chatOptions struct {
	TUI          bool
	GlamourStyle string
	// LogFile is where logs go instead of stderr, empty for stderr
	LogFile string
}

// muteConsoleLogs disables logging while the chat UI owns the terminal,
// unless the logs go to a file. It returns a func restoring the previous level.
func muteConsoleLogs(tui bool, logFile string) func() {
	if !tui || logFile != "" {
		return func() {}
	}
	level := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.Disabled)
	return func() {
		zerolog.SetGlobalLevel(level)
	}
}

func runChat(ctx context.Context, session *Session, w io.Writer, options chatOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	restoreLogs := muteConsoleLogs(options.TUI, options.LogFile)
	defer restoreLogs()

	router, err := events.NewEventRouter(events.WithVerbose(viper.GetBool("verbose")))
	if err != nil {
		return errors.Wrap(err, "failed to create event router")
	}
	defer func() {
		_ = router.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var run func(ctx context.Context) error
	if options.TUI {
		p := tea.NewProgram(
			ui.InitialModel(
				events.WithEventSinks(ctx, router.Sink(events.TopicChat)),
				session.Orchestrator,
				session.Conversation,
				ui.Options{GlamourStyle: options.GlamourStyle},
			),
			tea.WithAltScreen(),
			tea.WithMouseCellMotion(), // turn on mouse support so we can track the mouse wheel
		)
		router.AddHandler("ui", events.TopicChat, uiEventHandler(p))
		run = func(ctx context.Context) error {
			_, err := p.Run()
			return err
		}
	} else {
		router.AddHandler("printer", events.TopicChat, events.TurnPrinterFunc("assistant", w))
		run = func(ctx context.Context) error {
			return runLineChat(
				events.WithEventSinks(ctx, router.Sink(events.TopicChat)),
				session.Orchestrator,
				session.Conversation,
				os.Stdin,
				w,
			)
		}
	}

	eg := errgroup.Group{}
	eg.Go(func() error {
		defer cancel()
		return router.Run(ctx)
	})
	eg.Go(func() error {
		defer cancel()
		<-router.Running()
		return run(ctx)
	})

	err = eg.Wait()
	session.Conversation.End()

	if options.TUI {
		// print the transcript once the alt screen is gone
		printTranscript(w, session.Conversation)
	}
	return err
}

// uiEventHandler forwards streamed text to the chat UI.
func uiEventHandler(p *tea.Program) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := events.NewEventFromJson(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("could not parse event")
			return nil
		}

		switch e_ := e.(type) {
		case *events.EventPartialCompletion:
			p.Send(ui.StreamCompletionMsg{Delta: e_.Delta})
		case *events.EventProviderError:
			p.Send(ui.StreamResetMsg{})
		}

		return nil
	}
}

// eofReader records whether the underlying reader hit the end of input.
type eofReader struct {
	r   io.Reader
	eof bool
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err == io.EOF {
		e.eof = true
	}
	return n, err
}

// runLineChat is the line-based session used when there is no terminal. Blank
// lines are ignored, "/quit" or the end of input ends the session.
func runLineChat(ctx context.Context, o *assistant.Orchestrator, conv *conversation.Conversation, r io.Reader, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s\n\n", prompts.Disclaimer); err != nil {
		return err
	}
	for _, m := range conv.Visible() {
		if _, err := fmt.Fprintf(w, "assistant: %s\n", m.Content); err != nil {
			return err
		}
	}

	in := &eofReader{r: r}
	ui_ := &input.UI{
		Writer: w,
		Reader: in,
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		text, err := ui_.Ask("you", &input.Options{
			HideOrder: true,
			Required:  false,
			Loop:      false,
		})
		if err != nil {
			if errors.Is(err, input.ErrInterrupted) {
				return nil
			}
			return err
		}

		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			if in.eof {
				return nil
			}
			continue
		}
		if trimmed == "/quit" || trimmed == "/exit" {
			return nil
		}

		_, err = o.Submit(ctx, conv, text)
		if err != nil && !errors.Is(err, assistant.ErrEmptyInput) {
			return err
		}
	}
}

func printTranscript(w io.Writer, conv *conversation.Conversation) {
	for _, m := range conv.Visible() {
		_, _ = fmt.Fprintln(w, m.View())
	}
}
