package events

import (
	"fmt"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
)

// TurnPrinterFunc returns a watermill handler that writes a turn's reply to w.
// Streamed deltas are written as they arrive. Replies that were not streamed
// (emergency, provider failure, blocking completion) are written whole when
// the reply event arrives.
func TurnPrinterFunc(name string, w io.Writer) func(msg *message.Message) error {
	streamed := false

	writeName := func() error {
		if name == "" {
			return nil
		}
		_, err := fmt.Fprintf(w, "%s: ", name)
		return err
	}

	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Str("message_id", msg.UUID).Msg("could not parse event")
			return nil
		}

		switch p_ := e.(type) {
		case *EventTurnStart:
			streamed = false

		case *EventPartialCompletion:
			if !streamed {
				streamed = true
				if err := writeName(); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprint(w, p_.Delta); err != nil {
				return err
			}

		case *EventProviderError:
			if streamed {
				streamed = false
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}

		case *EventReply:
			if !streamed {
				if err := writeName(); err != nil {
					return err
				}
				if _, err := fmt.Fprint(w, p_.Text); err != nil {
					return err
				}
			}
			if !strings.HasSuffix(p_.Text, "\n") {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			streamed = false
		}

		return nil
	}
}
