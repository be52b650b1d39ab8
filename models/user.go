package models

import "time"

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleWaiter   Role = "WAITER"
	RoleChef     Role = "CHEF"
	RoleDriver   Role = "DRIVER"
	RoleManager  Role = "MANAGER"
)

var Roles = []Role{RoleCustomer, RoleWaiter, RoleChef, RoleDriver, RoleManager}

type Permission string

const (
	PermTakeEatInOrder     Permission = "TAKE_EAT_IN_ORDER"
	PermPlaceTakeawayOrder Permission = "PLACE_TAKEAWAY_ORDER"
	PermPlaceDeliveryOrder Permission = "PLACE_DELIVERY_ORDER"
	PermActForCustomer     Permission = "ACT_FOR_CUSTOMER"
	PermConfirmOrder       Permission = "CONFIRM_ORDER"
	PermPrepareOrder       Permission = "PREPARE_ORDER"
	PermServeOrder         Permission = "SERVE_ORDER"
	PermHandOverOrder      Permission = "HAND_OVER_ORDER"
	PermDispatchOrder      Permission = "DISPATCH_ORDER"
	PermAssignDriver       Permission = "ASSIGN_DRIVER"
	PermDeliverOrder       Permission = "DELIVER_ORDER"
	PermCancelOwnOrder     Permission = "CANCEL_OWN_ORDER"
	PermCancelAnyOrder     Permission = "CANCEL_ANY_ORDER"
	PermViewOrders         Permission = "VIEW_ORDERS"
	PermRequestBooking     Permission = "REQUEST_BOOKING"
	PermApproveBooking     Permission = "APPROVE_BOOKING"
	PermRejectBooking      Permission = "REJECT_BOOKING"
	PermCancelOwnBooking   Permission = "CANCEL_OWN_BOOKING"
	PermCancelAnyBooking   Permission = "CANCEL_ANY_BOOKING"
	PermViewBookings       Permission = "VIEW_BOOKINGS"
)

var Permissions = []Permission{
	PermTakeEatInOrder, PermPlaceTakeawayOrder, PermPlaceDeliveryOrder, PermActForCustomer,
	PermConfirmOrder, PermPrepareOrder, PermServeOrder, PermHandOverOrder, PermDispatchOrder,
	PermAssignDriver, PermDeliverOrder, PermCancelOwnOrder, PermCancelAnyOrder, PermViewOrders,
	PermRequestBooking, PermApproveBooking, PermRejectBooking, PermCancelOwnBooking,
	PermCancelAnyBooking, PermViewBookings,
}

func (r Role) Valid() bool {
	for _, x := range Roles {
		if r == x {
			return true
		}
	}
	return false
}

func (p Permission) Valid() bool {
	for _, x := range Permissions {
		if p == x {
			return true
		}
	}
	return false
}

// User is the actor of a lifecycle operation. ChatID links the account to
// Telegram for notifications and is 0 when unknown.
type User struct {
	ID     int64
	Name   string
	Role   Role
	ChatID int64
}

// Credential is a staff password hash plus its login throttle state.
type Credential struct {
	UserID        int64
	PasswordHash  string
	Active        bool
	FailCount     int
	CooldownUntil time.Time
}
