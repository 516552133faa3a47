package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/vedran77/marketchat/internal/service"
)

func inboxCommand() *cli.Command {
	return &cli.Command{
		Name:  "inbox",
		Usage: "List conversations, most recent first",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Keep the list current from notifications and polling",
			},
		},
		Action: runInbox,
	}
}

func runInbox(c *cli.Context) error {
	d, err := setup(c)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	inbox := service.NewInbox(d.messages, d.products, d.session, service.InboxOptions{
		PrefetchProducts: d.cfg.Inbox.PrefetchProducts,
	}, d.log)

	if err := inbox.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load conversations: %w", err)
	}
	printInbox(c.App.Writer, inbox)

	if !c.Bool("watch") {
		return nil
	}

	listener := service.NewNotificationListener(d.dialer, d.session, inbox, d.cfg.API.BaseURL, d.cfg.Inbox.PollInterval, d.log)
	go listener.Run(ctx)

	last := inboxDigest(inbox)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-inbox.Changes():
			if digest := inboxDigest(inbox); digest != last {
				last = digest
				printInbox(c.App.Writer, inbox)
			}
		}
	}
}
