package bot

import (
	"fmt"
	"strings"

	"restaurant-core/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func statusText(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", " "))
}

func kindText(k models.OrderKind) string {
	switch k {
	case models.KindEatIn:
		return "eat-in"
	case models.KindTakeaway:
		return "takeaway"
	case models.KindDelivery:
		return "delivery"
	}
	return string(k)
}

// orderLine is the one-line summary used in lists and replies.
func orderLine(o *models.Order) string {
	line := fmt.Sprintf("#%d %s, %s, %s", o.ID, kindText(o.Kind), statusText(string(o.Status)), o.TotalPrice.StringFixed(2))
	switch {
	case o.EatIn != nil:
		line += fmt.Sprintf(", table %d", o.EatIn.TableNumber)
	case o.Delivery != nil && o.Delivery.AssignedDriverID != 0:
		line += fmt.Sprintf(", driver #%d", o.Delivery.AssignedDriverID)
	}
	return line
}

// orderCard is the full view shown by /order.
func orderCard(o *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%d (%s)\n", o.ID, kindText(o.Kind))
	fmt.Fprintf(&b, "Status: %s\n", statusText(string(o.Status)))
	fmt.Fprintf(&b, "Customer: #%d\n", o.CustomerID)
	switch {
	case o.EatIn != nil:
		fmt.Fprintf(&b, "Table: %d\n", o.EatIn.TableNumber)
	case o.Takeaway != nil:
		fmt.Fprintf(&b, "Pickup: %s\n", o.Takeaway.PickupTime.Format("15:04"))
	case o.Delivery != nil:
		fmt.Fprintf(&b, "Address: %s\n", o.Delivery.Address)
		if o.Delivery.EstimatedDeliveryTime != nil {
			fmt.Fprintf(&b, "ETA: %s\n", o.Delivery.EstimatedDeliveryTime.Format("15:04"))
		}
		if o.Delivery.AssignedDriverID != 0 {
			fmt.Fprintf(&b, "Driver: #%d\n", o.Delivery.AssignedDriverID)
		}
	}
	b.WriteString("\n")
	for _, it := range o.Items {
		fmt.Fprintf(&b, "• %s  %s\n", it.Name, it.Price.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s", o.TotalPrice.StringFixed(2))
	return b.String()
}

type button struct {
	text    string
	command string
}

// nextSteps lists the buttons offered for an order in its current status.
func nextSteps(o *models.Order) []button {
	switch o.Status {
	case models.OrderPendingConfirmation:
		return []button{{"✅ Confirm", "confirm"}, {"❌ Reject", "reject"}}
	case models.OrderConfirmed:
		steps := []button{{"👨‍🍳 Start preparing", "prepare"}}
		if o.Kind == models.KindDelivery {
			steps = append(steps, button{"📦 Ready for dispatch", "dispatch"})
		}
		return append(steps, button{"🚫 Cancel", "cancel"})
	case models.OrderPreparing:
		return []button{{"🍽 Mark ready", "ready"}}
	case models.OrderReady:
		switch o.Kind {
		case models.KindEatIn:
			return []button{{"🍽 Served", "serve"}}
		case models.KindTakeaway:
			return []button{{"🛍 Collected", "collect"}}
		case models.KindDelivery:
			return []button{{"📦 Ready for dispatch", "dispatch"}, {"🚗 Out for delivery", "out"}}
		}
	case models.OrderReadyForDispatch:
		if o.DriverID() == 0 {
			return []button{{"🙋 Accept delivery", "accept"}}
		}
		return []button{{"🚗 Out for delivery", "out"}}
	case models.OrderOutForDelivery:
		return []button{{"📬 Delivered", "delivered"}}
	}
	return nil
}

func keyboard(id int64, steps []button) *tgbotapi.InlineKeyboardMarkup {
	if len(steps) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(steps))
	for _, s := range steps {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.text, callbackData(s.command, id)),
		))
	}
	m := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &m
}

func orderButtons(o *models.Order) *tgbotapi.InlineKeyboardMarkup {
	return keyboard(o.ID, nextSteps(o))
}

func bookingLine(bk *models.Booking) string {
	line := fmt.Sprintf("Booking #%d %s %s, %d guests, %s",
		bk.ID, bk.Date.Format("2006-01-02"), bk.Time.String(), bk.Guests, statusText(string(bk.Status)))
	if bk.TableNumber > 0 {
		line += fmt.Sprintf(", table %d", bk.TableNumber)
	}
	return line
}

// bookingButtons offers approve/decline for every pending booking given.
func bookingButtons(pending ...*models.Booking) *tgbotapi.InlineKeyboardMarkup {
	if len(pending) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(pending))
	for _, bk := range pending {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ Approve #%d", bk.ID), callbackData("approve", bk.ID)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("❌ Decline #%d", bk.ID), callbackData("decline", bk.ID)),
		))
	}
	m := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &m
}
