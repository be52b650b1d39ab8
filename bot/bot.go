package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"restaurant-core/logger"
	"restaurant-core/models"
	"restaurant-core/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the part of *tgbotapi.BotAPI used for outgoing traffic.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Deps are the engine services the staff bot drives.
type Deps struct {
	Orders   *services.OrderService
	Bookings *services.BookingService
	Tables   *services.Allocator
	Accounts *services.Accounts
	Users    services.UserDirectory
	Log      *logger.Logger
}

type orderAction func(ctx context.Context, actor *models.User, id int64) (*models.Order, error)

// Bot is the staff console: waiters, chefs, drivers and managers log in
// with their user id and drive orders and bookings through commands.
type Bot struct {
	api  *tgbotapi.BotAPI
	out  sender
	deps Deps
	log  *logger.Logger
	now  func() time.Time

	orderActions map[string]orderAction

	sessionsMu sync.RWMutex
	sessions   map[int64]int64 // telegram user id -> staff user id
}

func New(token string, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	b := newBot(api, deps)
	b.api = api
	return b, nil
}

func newBot(out sender, deps Deps) *Bot {
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	b := &Bot{
		out:      out,
		deps:     deps,
		log:      log,
		now:      time.Now,
		sessions: make(map[int64]int64),
	}
	o := deps.Orders
	b.orderActions = map[string]orderAction{
		"confirm":   o.ConfirmOrder,
		"reject":    o.RejectOrder,
		"prepare":   o.StartPreparation,
		"ready":     o.MarkReady,
		"serve":     o.MarkServed,
		"collect":   o.MarkCollected,
		"dispatch":  o.MarkReadyForDispatch,
		"accept":    o.AcceptDelivery,
		"out":       o.MarkOutForDelivery,
		"delivered": o.MarkDelivered,
		"cancel":    o.CancelOrder,
	}
	return b
}

// GetAPI returns the bot API so the notification sink can share it.
func (b *Bot) GetAPI() *tgbotapi.BotAPI {
	return b.api
}

func (b *Bot) setBotCommands() error {
	cfg := tgbotapi.SetMyCommandsConfig{
		Commands: []tgbotapi.BotCommand{
			{Command: "login", Description: "Log in: /login <id> <password>"},
			{Command: "orders", Description: "Outstanding orders"},
			{Command: "bookings", Description: "Bookings for a day"},
			{Command: "tables", Description: "Table status"},
			{Command: "logout", Description: "End the session"},
			{Command: "help", Description: "All commands"},
		},
	}
	_, err := b.out.Request(cfg)
	return err
}

// Start polls Telegram until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	if err := b.setBotCommands(); err != nil {
		b.log.Warn(ctx, "bot.start", "set commands failed", "error", err.Error())
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	b.log.Info(ctx, "bot.start", "staff bot polling", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}
	msg := update.Message
	b.handleMessage(ctx, msg.Chat.ID, senderID(msg.From), msg.MessageID, msg.Text)
}

// senderID keys sessions. In a private chat it equals the chat id; in a group
// it keeps every member to their own session.
func senderID(from *tgbotapi.User) int64 {
	if from == nil {
		return 0
	}
	return from.ID
}

func (b *Bot) handleMessage(ctx context.Context, chatID, fromID int64, messageID int, text string) {
	cmd, err := ParseCommand(text)
	if errors.Is(err, ErrNotCommand) {
		b.send(chatID, "Send /help for the list of commands.")
		return
	}
	if err != nil {
		b.send(chatID, err.Error())
		return
	}

	switch cmd.Name {
	case "start", "help":
		b.send(chatID, helpText())
		return
	case "login":
		// the password should not linger in the chat history
		if messageID != 0 {
			if _, err := b.out.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
				b.log.Debug(ctx, "bot.login", "delete password message failed", "chat_id", chatID, "error", err.Error())
			}
		}
		b.send(chatID, b.login(ctx, fromID, cmd.IDs[0], cmd.Password))
		return
	case "logout":
		b.sessionsMu.Lock()
		delete(b.sessions, fromID)
		b.sessionsMu.Unlock()
		b.send(chatID, "Logged out.")
		return
	}

	actor, err := b.actor(ctx, fromID)
	if err != nil {
		b.send(chatID, b.errorReply(ctx, cmd, err))
		return
	}
	reply, markup, err := b.execute(ctx, actor, cmd)
	if err != nil {
		b.send(chatID, b.errorReply(ctx, cmd, err))
		return
	}
	b.sendWithMarkup(chatID, reply, markup)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	cmd, err := ParseCallback(cq.Data)
	if err != nil {
		b.answer(cq.ID, "Unknown button")
		return
	}
	// only the presser's own session counts, even in the shared staff group
	actor, err := b.actor(ctx, senderID(cq.From))
	if err != nil {
		b.answer(cq.ID, "Error")
		b.send(chatID, b.errorReply(ctx, cmd, err))
		return
	}
	reply, markup, err := b.execute(ctx, actor, cmd)
	if err != nil {
		b.answer(cq.ID, "Not done")
		b.send(chatID, b.errorReply(ctx, cmd, err))
		return
	}
	b.answer(cq.ID, "Done")
	b.sendWithMarkup(chatID, reply, markup)
}

// login binds the sender to a staff user. The sender id doubles as the
// private chat id that notifications go to.
func (b *Bot) login(ctx context.Context, fromID, userID int64, password string) string {
	if fromID == 0 {
		return "Log in from your own account."
	}
	user, err := b.deps.Accounts.Login(ctx, userID, password)
	var throttled *services.ThrottledError
	switch {
	case errors.As(err, &throttled):
		return throttled.Error()
	case errors.Is(err, services.ErrInvalidCredentials):
		return "Wrong user id or password."
	case err != nil:
		b.log.Error(ctx, "bot.login", "login failed", err, "user_id", userID)
		return "Login failed, try again later."
	}

	if user.ChatID != fromID {
		user.ChatID = fromID
		if _, err := b.deps.Users.Save(ctx, user); err != nil {
			b.log.Warn(ctx, "bot.login", "chat id not stored", "user_id", user.ID, "error", err.Error())
		}
	}
	b.sessionsMu.Lock()
	b.sessions[fromID] = user.ID
	b.sessionsMu.Unlock()
	b.log.Info(ctx, "bot.login", "staff logged in", "user_id", user.ID, "role", string(user.Role))
	return fmt.Sprintf("Hello, %s (%s).", user.Name, strings.ToLower(string(user.Role)))
}

// actor resolves the session user afresh so role changes apply at once.
// A sender without a session yields a nil actor and the services refuse it.
func (b *Bot) actor(ctx context.Context, fromID int64) (*models.User, error) {
	b.sessionsMu.RLock()
	userID, ok := b.sessions[fromID]
	b.sessionsMu.RUnlock()
	if !ok {
		return nil, nil
	}
	return b.deps.Users.FindByID(ctx, userID)
}

func (b *Bot) execute(ctx context.Context, actor *models.User, cmd Command) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	if action, ok := b.orderActions[cmd.Name]; ok {
		o, err := action(ctx, actor, cmd.IDs[0])
		if err != nil {
			return "", nil, err
		}
		return orderLine(o), orderButtons(o), nil
	}

	switch cmd.Name {
	case "orders":
		orders, err := b.deps.Orders.ListOutstanding(ctx, actor)
		if err != nil {
			return "", nil, err
		}
		if len(orders) == 0 {
			return "No outstanding orders.", nil, nil
		}
		lines := make([]string, 0, len(orders))
		for _, o := range orders {
			lines = append(lines, orderLine(o))
		}
		return strings.Join(lines, "\n"), nil, nil
	case "order":
		o, err := b.deps.Orders.GetOrder(ctx, actor, cmd.IDs[0])
		if err != nil {
			return "", nil, err
		}
		return orderCard(o), orderButtons(o), nil
	case "assign":
		o, err := b.deps.Orders.AssignDriver(ctx, actor, cmd.IDs[0], cmd.IDs[1])
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Order #%d assigned to driver #%d.", o.ID, o.DriverID()), nil, nil
	case "bookings":
		date := cmd.Date
		if date.IsZero() {
			date = b.now()
		}
		list, err := b.deps.Bookings.ListByDate(ctx, actor, date)
		if err != nil {
			return "", nil, err
		}
		if len(list) == 0 {
			return fmt.Sprintf("No bookings on %s.", date.Format("2006-01-02")), nil, nil
		}
		lines := make([]string, 0, len(list))
		var pending []*models.Booking
		for _, bk := range list {
			lines = append(lines, bookingLine(bk))
			if bk.Status == models.BookingPendingApproval {
				pending = append(pending, bk)
			}
		}
		return strings.Join(lines, "\n"), bookingButtons(pending...), nil
	case "approve":
		bk, err := b.deps.Bookings.ApproveBooking(ctx, actor, cmd.IDs[0])
		if err != nil {
			return "", nil, err
		}
		if bk.Status == models.BookingRejected {
			return fmt.Sprintf("Booking #%d rejected: no free table for %d guests.", bk.ID, bk.Guests), nil, nil
		}
		return fmt.Sprintf("Booking #%d confirmed at table %d.", bk.ID, bk.TableNumber), nil, nil
	case "decline":
		bk, err := b.deps.Bookings.RejectBooking(ctx, actor, cmd.IDs[0])
		if err != nil {
			return "", nil, err
		}
		return bookingLine(bk), nil, nil
	case "cancelbooking":
		bk, err := b.deps.Bookings.CancelBooking(ctx, actor, cmd.IDs[0])
		if err != nil {
			return "", nil, err
		}
		return bookingLine(bk), nil, nil
	case "tables":
		if actor == nil {
			return "", nil, models.ErrAuthenticationRequired
		}
		tables, err := b.deps.Tables.Tables(ctx)
		if err != nil {
			return "", nil, err
		}
		lines := make([]string, 0, len(tables))
		for _, t := range tables {
			lines = append(lines, fmt.Sprintf("Table %d (%d seats): %s", t.Number, t.Capacity, strings.ToLower(string(t.Status))))
		}
		return strings.Join(lines, "\n"), nil, nil
	}
	return "", nil, fmt.Errorf("unhandled command /%s", cmd.Name)
}

// errorReply maps engine errors to what staff should see.
func (b *Bot) errorReply(ctx context.Context, cmd Command, err error) string {
	var (
		authz *models.AuthorizationError
		trans *models.InvalidStateTransitionError
	)
	switch {
	case errors.Is(err, models.ErrAuthenticationRequired):
		return "Please /login first."
	case errors.As(err, &authz):
		if authz.Reason != "" {
			return "Not allowed: " + authz.Reason + "."
		}
		return fmt.Sprintf("Not allowed: %s cannot %s.", strings.ToLower(string(authz.Role)), permissionLabel(authz.Permission))
	case errors.As(err, &trans):
		return fmt.Sprintf("Cannot %s %s #%d while it is %s.", trans.Transition, trans.Entity, trans.ID, strings.ToLower(strings.ReplaceAll(trans.Current, "_", " ")))
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrResourceUnavailable):
		return err.Error()
	}
	b.log.Error(ctx, "bot."+cmd.Name, "command failed", err)
	return "Something went wrong, try again later."
}

func permissionLabel(p models.Permission) string {
	return strings.ToLower(strings.ReplaceAll(string(p), "_", " "))
}

func (b *Bot) send(chatID int64, text string) {
	b.sendWithMarkup(chatID, text, nil)
}

func (b *Bot) sendWithMarkup(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	if _, err := b.out.Send(msg); err != nil {
		b.log.Warn(context.Background(), "bot.send", "send failed", "chat_id", chatID, "error", err.Error())
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.out.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Debug(context.Background(), "bot.callback", "answer failed", "error", err.Error())
	}
}
