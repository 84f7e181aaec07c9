package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/moabook/chatlink/internal/api"
	"github.com/moabook/chatlink/internal/chat"
	"github.com/moabook/chatlink/internal/config"
	"github.com/moabook/chatlink/internal/relay"
	"github.com/moabook/chatlink/internal/transport"
)

var version = "dev"

type flags struct {
	LogLevel   string
	ConfigPath string
	Config     config.Config
}

func main() {
	f := &flags{}

	app := &cli.Command{
		Name:    "chatlink",
		Usage:   "Real-time chat client for the book exchange app",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("CHATLINK_LOG_LEVEL"),
				Value:       "info",
				Destination: &f.LogLevel,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("CHATLINK_CONFIG"),
				Value:       "chatlink.yml",
				Destination: &f.ConfigPath,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if err := setupLogger(f.LogLevel); err != nil {
				return ctx, err
			}
			cfg, err := config.Load(f.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			f.Config = cfg
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCommand(f),
			roomsCommand(f),
			openCommand(f),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("chatlink failed")
	}
}

func setupLogger(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
	return nil
}

// serveCommand runs the development relay with a couple of fixture rooms.
func serveCommand(f *flags) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the development relay broker",
		Action: func(ctx context.Context, c *cli.Command) error {
			r := relay.New(log.Logger)
			r.Seed(fixtureRooms(), fixtureHistories())
			log.Info().Str("listen", f.Config.Relay.Listen).Msg("relay listening")
			return r.App().Listen(f.Config.Relay.Listen)
		},
	}
}

// roomsCommand prints the room list, newest activity first.
func roomsCommand(f *flags) *cli.Command {
	return &cli.Command{
		Name:  "rooms",
		Usage: "List chat rooms",
		Action: func(ctx context.Context, c *cli.Command) error {
			svc := newService(f)
			defer svc.Stop()
			if err := svc.Start(ctx); err != nil {
				return err
			}
			for _, r := range svc.Inbox().Rooms() {
				fmt.Printf("%6d  %-20s  %-40s  unread=%d\n", r.ID, r.PartnerName, r.LastMessage, r.UnreadCount)
			}
			return nil
		},
	}
}

// openCommand opens one room: inbound messages print as they reconcile, and
// stdin lines publish to the send destination.
func openCommand(f *flags) *cli.Command {
	var roomID int64
	return &cli.Command{
		Name:  "open",
		Usage: "Open a chat room",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "room",
				Usage:       "room id to open",
				Required:    true,
				Destination: &roomID,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			svc := newService(f)
			defer svc.Stop()
			if err := svc.Start(ctx); err != nil {
				return err
			}

			sess, err := svc.OpenRoom(ctx, roomID)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			go readInput(ctx, sess)
			printLoop(ctx, sess)
			return nil
		},
	}
}

func newService(f *flags) *chat.Service {
	conn := transport.NewConn(f.Config.Broker.URL, log.Logger)
	rest := api.New(f.Config.API.BaseURL, log.Logger, api.WithToken(f.Config.API.Token))
	return chat.NewService(conn, rest, f.Config.User.ID, log.Logger)
}

func readInput(ctx context.Context, sess *chat.RoomSession) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := sess.Send(line); err != nil {
			log.Warn().Err(err).Msg("send failed")
		}
	}
}

// printLoop polls the reconciled timeline and prints entries it has not
// shown yet. Arrival order is list order, so a count cursor is enough.
func printLoop(ctx context.Context, sess *chat.RoomSession) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	printed := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msgs := sess.Messages()
			for ; printed < len(msgs); printed++ {
				m := msgs[printed]
				switch m.Type {
				case chat.MessageInfo:
					fmt.Printf("-- %s --\n", m.Content)
				default:
					fmt.Printf("[%s] %d: %s\n", m.Timestamp.Format("15:04:05"), m.SenderID, m.Content)
				}
			}
		}
	}
}

func fixtureRooms() []chat.RoomSummary {
	now := time.Now()
	return []chat.RoomSummary{
		{ID: 1, PartnerName: "Jiwoo", LastMessage: "See you at the library", LastMessageTime: now.Add(-time.Hour)},
		{ID: 2, PartnerName: "Minseo", LastMessage: "Is the book still available?", LastMessageTime: now.Add(-2 * time.Hour)},
	}
}

func fixtureHistories() map[int64][]chat.Message {
	now := time.Now()
	return map[int64][]chat.Message{
		1: {
			{ID: 1, ChatRoomID: 1, SenderID: 2, Content: "Hi! I'd like to swap for your copy.", Type: chat.MessageChat, Timestamp: now.Add(-2 * time.Hour), IsRead: true},
			{ID: 2, ChatRoomID: 1, SenderID: 1, Content: "Sure, when works for you?", Type: chat.MessageChat, Timestamp: now.Add(-90 * time.Minute), IsRead: true},
			{ID: 3, ChatRoomID: 1, SenderID: 2, Content: "See you at the library", Type: chat.MessageChat, Timestamp: now.Add(-time.Hour)},
		},
		2: {
			{ID: 4, ChatRoomID: 2, SenderID: 3, Content: "Is the book still available?", Type: chat.MessageChat, Timestamp: now.Add(-2 * time.Hour)},
		},
	}
}
