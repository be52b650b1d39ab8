package services

import (
	"fmt"
	"strings"
)

// statusLabel turns PENDING_CONFIRMATION into "pending confirmation".
func statusLabel(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", " "))
}

// RenderNotification returns the human-readable line shown to customers,
// drivers and staff.
func RenderNotification(n Notification) string {
	subject := fmt.Sprintf("Order #%d", n.EntityID)
	if n.Entity == EntityBooking {
		subject = fmt.Sprintf("Booking #%d", n.EntityID)
	}
	switch n.Kind {
	case NotifyConfirmation:
		if n.Entity == EntityBooking && n.TableNumber > 0 {
			return fmt.Sprintf("✅ %s is confirmed. Table %d is reserved for you.", subject, n.TableNumber)
		}
		return fmt.Sprintf("✅ %s is confirmed.", subject)
	case NotifyCancellation:
		return fmt.Sprintf("❌ %s was %s.", subject, statusLabel(n.NewStatus))
	case NotifyPendingBooking:
		return fmt.Sprintf("🔔 %s is waiting for approval.", subject)
	case NotifyDriverAssigned:
		return fmt.Sprintf("🚗 %s is assigned to driver #%d.", subject, n.DriverID)
	}
	if n.OldStatus == "" {
		return fmt.Sprintf("%s: %s.", subject, statusLabel(n.NewStatus))
	}
	return fmt.Sprintf("%s: %s → %s.", subject, statusLabel(n.OldStatus), statusLabel(n.NewStatus))
}
