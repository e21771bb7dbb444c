// Package telegram adapts the Telegram Bot API to the dialogue state
// machine: long polling in, replies with keyboards out.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"platewatch/internal/app"
	"platewatch/internal/util"
)

const confirmButtonText = "Підтвердити мій номер телефону"

// Config holds runtime configuration for the bot transport.
type Config struct {
	Token       string
	PollTimeout int // long-poll timeout, seconds
	Workers     int
	App         *app.App
}

// Bot polls Telegram for updates and routes each message through the
// dialogue state machine.
type Bot struct {
	api         *tgbotapi.BotAPI
	app         *app.App
	pollTimeout int
	workers     int
}

// New authenticates against the Bot API and constructs the transport.
func New(cfg Config) (*Bot, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app required")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 30
	}
	return &Bot{api: api, app: cfg.App, pollTimeout: pollTimeout, workers: workers}, nil
}

// Run polls for updates until ctx is cancelled. Updates are sharded onto
// workers by chat ID, so each conversation is handled one message at a time
// while distinct conversations proceed concurrently.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)

	queues := make([]chan *tgbotapi.Message, b.workers)
	g, ctx := errgroup.WithContext(ctx)
	for i := range queues {
		queues[i] = make(chan *tgbotapi.Message, 16)
		q := queues[i]
		g.Go(func() error {
			for msg := range q {
				b.handleMessage(ctx, msg)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				b.api.StopReceivingUpdates()
				return ctx.Err()
			case upd, ok := <-updates:
				if !ok {
					return nil
				}
				if upd.Message == nil || upd.Message.From == nil {
					continue
				}
				shard := upd.Message.Chat.ID % int64(b.workers)
				if shard < 0 {
					shard = -shard
				}
				select {
				case queues[shard] <- upd.Message:
				case <-ctx.Done():
					b.api.StopReceivingUpdates()
					return ctx.Err()
				}
			}
		}
	})
	return g.Wait()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	log := slog.With("update_id", util.NewUpdateID(), "chat_id", msg.Chat.ID)

	inbound := app.Inbound{
		ChatID:   msg.Chat.ID,
		SenderID: msg.From.ID,
		Text:     msg.Text,
		Private:  msg.Chat.IsPrivate(),
	}
	if msg.Contact != nil {
		inbound.Contact = &app.Contact{
			PhoneNumber: msg.Contact.PhoneNumber,
			OwnerID:     msg.Contact.UserID,
		}
	}

	replies, err := b.app.HandleMessage(ctx, inbound)
	if err != nil {
		log.Error("turn failed", "err", err)
		return
	}
	for _, reply := range replies {
		out := tgbotapi.NewMessage(msg.Chat.ID, reply.Text)
		switch {
		case reply.RequestContact:
			out.ReplyMarkup = contactKeyboard()
		case reply.RemoveKeyboard:
			out.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
		}
		if reply.Quote {
			out.ReplyToMessageID = msg.MessageID
		}
		if _, err := b.api.Send(out); err != nil {
			log.Error("send reply failed", "err", err)
			return
		}
	}
}

func contactKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact(confirmButtonText),
		),
	)
}
