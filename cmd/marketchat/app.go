package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/vedran77/marketchat/internal/auth"
	"github.com/vedran77/marketchat/internal/config"
	"github.com/vedran77/marketchat/internal/logging"
	"github.com/vedran77/marketchat/internal/repository/rest"
	"github.com/vedran77/marketchat/internal/transport/ws"
)

var errNoToken = errors.New("no bearer token: set auth.token, MARKETCHAT_AUTH_TOKEN or --token")

// deps is everything a command needs to talk to the storefront.
type deps struct {
	cfg      *config.Config
	log      zerolog.Logger
	session  *auth.Session
	client   *rest.Client
	messages *rest.MessageRepo
	products *rest.ProductRepo
	dialer   *ws.WebsocketDialer
}

func setup(c *cli.Context) (*deps, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Pretty, os.Stderr)

	token := cfg.Auth.Token
	if t := c.String("token"); t != "" {
		token = t
	}
	if token == "" {
		return nil, errNoToken
	}

	session := auth.NewSession()
	if err := session.SetToken(token); err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}

	client, err := rest.New(cfg.API.BaseURL, cfg.API.Timeout, session, log)
	if err != nil {
		return nil, fmt.Errorf("creating api client: %w", err)
	}

	user := session.User()
	log.Debug().Str("user_id", user.ID.String()).Str("username", user.Username).Msg("signed in")

	return &deps{
		cfg:      cfg,
		log:      log,
		session:  session,
		client:   client,
		messages: rest.NewMessageRepo(client),
		products: rest.NewProductRepo(client),
		dialer:   ws.NewDialer(cfg.Chat.ReadLimit),
	}, nil
}

func (d *deps) Close() {
	d.client.Close()
}
