package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/vedran77/marketchat/internal/domain"
	"github.com/vedran77/marketchat/internal/service"
)

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Open a conversation and chat from stdin",
		Description: "Every line read from stdin is sent as a message.\n" +
			"/share sends the conversation's product, /refresh reloads the history, /quit leaves.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "partner",
				Aliases:  []string{"p"},
				Usage:    "User id of the other party",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "product",
				Usage: "Product id the conversation is about",
			},
		},
		Action: runChat,
	}
}

func runChat(c *cli.Context) error {
	d, err := setup(c)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	sync := service.NewSynchronizer(d.messages, d.products, d.dialer, d.session, service.SyncOptions{
		APIBase:        d.cfg.API.BaseURL,
		TypingClear:    d.cfg.Chat.TypingClear,
		TypingDebounce: d.cfg.Chat.TypingDebounce,
	}, d.log)
	defer sync.Close()

	partner, product := domain.ID(c.String("partner")), domain.ID(c.String("product"))
	if err := sync.Open(ctx, partner, product); err != nil {
		return fmt.Errorf("failed to open conversation: %w", err)
	}

	view := newChatView(c.App.Writer, d.session.User())
	view.render(sync.Snapshot())
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sync.Changes():
				view.render(sync.Snapshot())
			}
		}
	}()

	lines := readLines(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(ctx, sync, line, c.App.ErrWriter); quit {
				return nil
			}
		}
	}
}

func handleLine(ctx context.Context, sync *service.Synchronizer, line string, errw io.Writer) bool {
	var err error
	switch strings.TrimSpace(line) {
	case "/quit":
		return true
	case "/share":
		err = sync.SendProductShare(ctx)
	case "/refresh":
		err = sync.Refresh(ctx)
	case "":
		return false
	default:
		sync.UpdateDraft(line)
		err = sync.Send(ctx, line)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(errw, "! %s\n", err)
	}
	return false
}

// readLines feeds stdin lines into a channel so the caller can also wait
// on ctx. The channel closes on EOF.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
