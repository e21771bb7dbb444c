// Package app implements the dialogue state machine: contact verification
// in the Start state, then plate lookup, record ingestion, and allow-list
// commands once a chat holds a verified phone number.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"platewatch/internal/plate"
	"platewatch/internal/record"
	"platewatch/internal/store"
)

// Text at or above this many characters is treated as a record submission
// rather than a plate query.
const recordTextThreshold = 20

const (
	msgPressConfirm   = "Натисніть \"Підтвердити мій номер телефону\" щоб продовжити."
	msgSendOwnContact = "Відправте свій контакт."
	msgNotAllowed     = "Нажаль вашого номеру телефона ще нема в списку дозволених. Зверніться до адміністратора, та відправте свій контакт знов."
	msgUsage          = "Просто надсилайте текстове повідомлення з номерними знаками і бот відповість чи є такий запис в базі."
	msgParseFailed    = "Не вдалось розібрати запит на додавання інформації про авто. Перевірте форму (зайві пусті строки тощо не можуть бути оброблені автоматично)"
)

// Contact is a transport-verified phone number and the ID of the account
// that owns it.
type Contact struct {
	PhoneNumber string
	OwnerID     int64
}

// Inbound is one message delivered by the chat transport.
type Inbound struct {
	ChatID   int64
	SenderID int64
	Text     string
	Contact  *Contact
	Private  bool
}

// Reply is one outbound message. RequestContact attaches the one-button
// contact keyboard, RemoveKeyboard clears it, Quote replies to the
// triggering message.
type Reply struct {
	Text           string
	RequestContact bool
	RemoveKeyboard bool
	Quote          bool
}

// Config holds the stores the state machine runs against.
type Config struct {
	Gate     store.Gate
	Records  store.Records
	Sessions store.Sessions
}

// App is the dialogue state machine.
type App struct {
	gate     store.Gate
	records  store.Records
	sessions store.Sessions
}

// New constructs the state machine.
func New(cfg Config) (*App, error) {
	if cfg.Gate == nil {
		return nil, fmt.Errorf("gate required")
	}
	if cfg.Records == nil {
		return nil, fmt.Errorf("record store required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	return &App{gate: cfg.Gate, records: cfg.Records, sessions: cfg.Sessions}, nil
}

// HandleMessage processes one inbound message for its chat and returns the
// replies to send. A returned error aborts the turn; the chat's persisted
// session is only ever written after its gate check succeeded, so a failed
// turn leaves the previous state intact.
func (a *App) HandleMessage(ctx context.Context, msg Inbound) ([]Reply, error) {
	if !msg.Private {
		return nil, nil
	}
	sess, err := a.sessions.LoadSession(ctx, msg.ChatID)
	if err != nil {
		return nil, err
	}
	if sess.State == store.StateAwaitingRequests {
		return a.handleAwaitingRequests(ctx, sess, msg)
	}
	return a.handleStart(ctx, msg)
}

// handleStart runs contact verification. The chat moves to AwaitingRequests
// only when the shared contact belongs to the sender and its digits are on
// the user allow-list; every other message re-prompts without a state
// change.
func (a *App) handleStart(ctx context.Context, msg Inbound) ([]Reply, error) {
	if msg.Contact == nil {
		return []Reply{{Text: msgPressConfirm, RequestContact: true}}, nil
	}
	if msg.Contact.OwnerID != msg.SenderID {
		return []Reply{{Text: msgSendOwnContact, RequestContact: true}}, nil
	}
	phone := store.DigitsOnly(msg.Contact.PhoneNumber)
	allowed, err := a.gate.IsUser(ctx, phone)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return []Reply{{Text: msgNotAllowed, RequestContact: true}}, nil
	}
	sess := store.Session{State: store.StateAwaitingRequests, PhoneNumber: phone}
	if err := a.sessions.SaveSession(ctx, msg.ChatID, sess); err != nil {
		return nil, err
	}
	slog.Info("phone number verified", "chat_id", msg.ChatID, "phone", phone)
	return []Reply{{
		Text:           fmt.Sprintf("Ваш номер %s підтверджено. %s", phone, msgUsage),
		RemoveKeyboard: true,
	}}, nil
}

func (a *App) handleAwaitingRequests(ctx context.Context, sess store.Session, msg Inbound) ([]Reply, error) {
	text := msg.Text
	if text == "" {
		return []Reply{{Text: msgUsage}}, nil
	}
	if strings.HasPrefix(text, "/") {
		return a.handleCommand(ctx, sess, msg.ChatID, text)
	}
	if utf8.RuneCountInString(text) < recordTextThreshold {
		return a.handleLookup(ctx, text)
	}
	return a.handleSubmission(ctx, sess, msg.ChatID, text)
}

func (a *App) handleLookup(ctx context.Context, text string) ([]Reply, error) {
	plateText := plate.Normalize(text)
	slog.Debug("plate lookup", "plate", plateText, "raw", text)
	rec, found, err := a.records.GetRecord(ctx, plateText)
	if err != nil {
		return nil, err
	}
	if !found {
		return []Reply{{
			Text: fmt.Sprintf("Інформації за номерними знаками \"%s\" не знайдено. %s", plateText, msgUsage),
		}}, nil
	}
	return []Reply{{Text: "Є точний збіг!\n\n" + record.Render(rec, plateText)}}, nil
}

// handleSubmission ingests a record submission. Admin membership is checked
// at this moment, never carried over from an earlier message.
func (a *App) handleSubmission(ctx context.Context, sess store.Session, chatID int64, text string) ([]Reply, error) {
	admin, err := a.gate.IsAdmin(ctx, sess.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if !admin {
		return []Reply{{Text: msgUsage}}, nil
	}
	plateText, rec, err := record.Parse(text)
	if errors.Is(err, record.ErrNoMatch) {
		slog.Warn("record submission rejected", "chat_id", chatID)
		return []Reply{{Text: msgParseFailed}}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := a.records.PutRecord(ctx, plateText, rec); err != nil {
		return nil, err
	}
	slog.Info("record stored", "plate", plateText, "chat_id", chatID)
	return []Reply{{
		Text:  fmt.Sprintf("Інформацію про авто з номерними знаками \"%s\" додано", plateText),
		Quote: true,
	}}, nil
}

// handleCommand runs allow-list commands. Non-admin senders and
// unrecognized commands consume the turn with no reply; a command message
// never falls through to lookup or ingestion.
func (a *App) handleCommand(ctx context.Context, sess store.Session, chatID int64, text string) ([]Reply, error) {
	admin, err := a.gate.IsAdmin(ctx, sess.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if !admin {
		slog.Debug("command from non-admin ignored", "chat_id", chatID)
		return nil, nil
	}
	switch {
	case strings.HasPrefix(text, "/adduser "):
		phone := commandArg(text, "/adduser ")
		if err := a.gate.AddUser(ctx, phone); err != nil {
			return nil, err
		}
		slog.Info("user added", "phone", phone, "chat_id", chatID)
		return []Reply{{Text: fmt.Sprintf("Користувача з номером телефону %s додано.", phone)}}, nil
	case strings.HasPrefix(text, "/deluser "):
		phone := commandArg(text, "/deluser ")
		if err := a.gate.RemoveUser(ctx, phone); err != nil {
			return nil, err
		}
		slog.Info("user removed", "phone", phone, "chat_id", chatID)
		return []Reply{{Text: fmt.Sprintf("Користувача з номером телефону %s видалено.", phone)}}, nil
	case strings.HasPrefix(text, "/addadmin "):
		phone := commandArg(text, "/addadmin ")
		if err := a.gate.AddAdmin(ctx, phone); err != nil {
			return nil, err
		}
		slog.Info("admin added", "phone", phone, "chat_id", chatID)
		return []Reply{{Text: fmt.Sprintf("Адміна з номером телефону %s додано.", phone)}}, nil
	case strings.HasPrefix(text, "/deladmin "):
		phone := commandArg(text, "/deladmin ")
		if err := a.gate.RemoveAdmin(ctx, phone); err != nil {
			return nil, err
		}
		slog.Info("admin removed", "phone", phone, "chat_id", chatID)
		return []Reply{{Text: fmt.Sprintf("Адміна з номером телефону %s видалено.", phone)}}, nil
	}
	return nil, nil
}

func commandArg(text, prefix string) string {
	return store.DigitsOnly(strings.TrimSpace(text[len(prefix):]))
}
