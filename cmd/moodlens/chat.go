package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thebtf/moodlens/internal/companion"
	"github.com/thebtf/moodlens/internal/config"
	"github.com/thebtf/moodlens/pkg/models"
)

const chatHelp = `Commands:
  /proactive  toggle proactive messages
  /nudge      ask the companion to speak first
  /quit       leave
`

func newChatCommand() *cobra.Command {
	var instant bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the companion in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if instant {
				cfg.ThinkingMinMS, cfg.ThinkingMaxMS = 0, 0
			}
			return chat(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&instant, "instant", false, "Reply without the thinking delay")
	return cmd
}

func chat(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	store, closeDB, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	delayMin, delayMax := cfg.ThinkingDelay()
	sess := companion.NewSession("terminal", companion.SessionOptions{
		Journal:   store,
		Clock:     store.Clock(),
		Responder: loadResponder(cfg.RulesPath),
		Notifier: companion.NotifierFunc(func(e companion.Event) {
			if e.Type == companion.EventTyping && e.Typing {
				fmt.Fprintln(os.Stderr, "…")
			}
		}),
		DelayMin:          delayMin,
		DelayMax:          delayMax,
		ProactiveDisabled: !cfg.Proactive,
	})

	fmt.Fprint(out, chatHelp)
	if msg, ok := sess.Initialize(); ok {
		printMessage(out, msg)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			// An empty Enter only redraws the prompt here; the HTTP API still sends blank turns.
			continue
		case "/quit", "/exit":
			return nil
		case "/proactive":
			if sess.ToggleProactive() {
				fmt.Fprintln(out, "proactive messages on")
			} else {
				fmt.Fprintln(out, "proactive messages off")
			}
			continue
		case "/nudge":
			if msg, ok := sess.Nudge(); ok {
				printMessage(out, msg)
			}
			continue
		}

		reply, err := sess.Send(ctx, line)
		if err != nil {
			return err
		}
		printMessage(out, reply)
	}
}

func printMessage(out io.Writer, msg models.ChatMessage) {
	fmt.Fprintf(out, "\n%s\n\n", msg.Content)
}
