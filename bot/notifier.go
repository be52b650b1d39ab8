package bot

import (
	"context"
	"fmt"

	"restaurant-core/logger"
	"restaurant-core/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier delivers lifecycle notifications over Telegram: customers and
// drivers in their own chats, pending bookings to the staff group.
type Notifier struct {
	out       sender
	users     services.UserDirectory
	staffChat int64
	log       *logger.Logger
}

func NewNotifier(out sender, users services.UserDirectory, staffChat int64, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Discard()
	}
	return &Notifier{out: out, users: users, staffChat: staffChat, log: log}
}

func (t *Notifier) SendConfirmation(ctx context.Context, n services.Notification) error {
	return t.toUser(ctx, n.CustomerID, n, nil)
}

func (t *Notifier) SendStatusUpdate(ctx context.Context, n services.Notification) error {
	return t.toUser(ctx, n.CustomerID, n, nil)
}

func (t *Notifier) SendCancellation(ctx context.Context, n services.Notification) error {
	return t.toUser(ctx, n.CustomerID, n, nil)
}

func (t *Notifier) SendPendingBookingAlert(ctx context.Context, n services.Notification) error {
	if t.staffChat == 0 {
		t.log.Debug(ctx, "notify.telegram", "no staff chat configured", "booking_id", n.EntityID)
		return nil
	}
	m := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Approve", callbackData("approve", n.EntityID)),
		tgbotapi.NewInlineKeyboardButtonData("❌ Decline", callbackData("decline", n.EntityID)),
	))
	return t.send(t.staffChat, services.RenderNotification(n), &m)
}

// SendDriverAssigned tells the driver, with a button to start the trip.
func (t *Notifier) SendDriverAssigned(ctx context.Context, n services.Notification) error {
	m := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🚗 Out for delivery", callbackData("out", n.EntityID)),
	))
	return t.toUser(ctx, n.DriverID, n, &m)
}

func (t *Notifier) toUser(ctx context.Context, userID int64, n services.Notification, markup *tgbotapi.InlineKeyboardMarkup) error {
	u, err := t.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user %d: %w", userID, err)
	}
	if u == nil || u.ChatID == 0 {
		// walk-in customers have no chat
		t.log.Debug(ctx, "notify.telegram", "recipient has no chat", "user_id", userID, "kind", string(n.Kind))
		return nil
	}
	return t.send(u.ChatID, services.RenderNotification(n), markup)
}

func (t *Notifier) send(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	if _, err := t.out.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return nil
}
