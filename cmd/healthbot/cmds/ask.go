package cmds

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-go-golems/healthbot/pkg/events"
	"github.com/go-go-golems/healthbot/pkg/ui"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tcnksm/go-input"
	"golang.org/x/sync/errgroup"
)

func NewAskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Ask a single question and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printRawEvents, _ := cmd.Flags().GetBool("print-raw-events")
			interactive, _ := cmd.Flags().GetBool("interactive")
			continueInChat, _ := cmd.Flags().GetBool("chat")

			session, err := NewSession(viper.GetViper())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			text := strings.Join(args, " ")
			if err := runAsk(cmd.Context(), session, text, w, printRawEvents); err != nil {
				return err
			}

			isOutputTerminal := isatty.IsTerminal(os.Stdout.Fd())
			if isOutputTerminal && interactive && !continueInChat {
				continueInChat, err = askForChatContinuation()
				if err != nil {
					return err
				}
			}
			if continueInChat {
				return runChat(cmd.Context(), session, w, chatOptions{
					TUI:     useTUI(false),
					LogFile: viper.GetString("log-file"),
				})
			}

			return nil
		},
	}

	cmd.Flags().Bool("print-raw-events", false, "Print the turn events as JSON instead of the reply")
	cmd.Flags().Bool("interactive", true, "On a terminal, ask whether to continue in chat after the reply")
	cmd.Flags().Bool("chat", false, "Continue in chat after the reply")

	return cmd
}

func runAsk(ctx context.Context, session *Session, text string, w io.Writer, printRawEvents bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	router, err := events.NewEventRouter(events.WithVerbose(viper.GetBool("verbose")))
	if err != nil {
		return errors.Wrap(err, "failed to create event router")
	}
	defer func() {
		_ = router.Close()
	}()

	if printRawEvents {
		router.AddHandler("raw", events.TopicChat, router.DumpRawEvents)
	} else {
		router.AddHandler("printer", events.TopicChat, events.TurnPrinterFunc("", w))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg := errgroup.Group{}
	eg.Go(func() error {
		defer cancel()
		return router.Run(ctx)
	})
	eg.Go(func() error {
		defer cancel()
		<-router.Running()

		turnCtx := events.WithEventSinks(ctx, router.Sink(events.TopicChat))
		reply, err := session.Orchestrator.Submit(turnCtx, session.Conversation, text)
		if err != nil {
			return err
		}
		log.Debug().Str("kind", string(reply.Kind)).Msg("reply printed")
		return nil
	})

	return eg.Wait()
}

func askForChatContinuation() (bool, error) {
	tty_, err := ui.OpenTTY()
	if err != nil {
		return false, err
	}
	defer func() {
		err := tty_.Close()
		if err != nil {
			fmt.Println("Failed to close tty:", err)
		}
	}()

	ui_ := &input.UI{
		Writer: tty_,
		Reader: tty_,
	}

	query := "\nDo you want to continue in chat? [y/n]"
	answer, err := ui_.Ask(query, &input.Options{
		Default:  "y",
		Required: true,
		Loop:     true,
		ValidateFunc: func(answer string) error {
			switch answer {
			case "y", "Y", "n", "N":
				return nil
			default:
				return fmt.Errorf("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		return false, err
	}

	return answer == "y" || answer == "Y", nil
}
