package services

import (
	"time"

	"restaurant-core/models"
)

type OrderTransition string

const (
	OrderConfirm              OrderTransition = "confirm"
	OrderReject               OrderTransition = "reject"
	OrderStartPreparation     OrderTransition = "startPreparation"
	OrderMarkReady            OrderTransition = "markReady"
	OrderMarkServed           OrderTransition = "markServed"
	OrderMarkCollected        OrderTransition = "markCollected"
	OrderMarkReadyForDispatch OrderTransition = "markReadyForDispatch"
	OrderAssignDriver         OrderTransition = "assignDriver"
	OrderMarkOutForDelivery   OrderTransition = "markOutForDelivery"
	OrderMarkDelivered        OrderTransition = "markDelivered"
	OrderComplete             OrderTransition = "complete"
	OrderCancel               OrderTransition = "cancel"
	OrderUpdateItems          OrderTransition = "updateItems"
)

type orderRule struct {
	from []models.OrderStatus
	// to is empty for transitions that keep the status.
	to           models.OrderStatus
	autoComplete bool
}

var orderRules = map[OrderTransition]orderRule{
	OrderConfirm:              {from: []models.OrderStatus{models.OrderPendingConfirmation}, to: models.OrderConfirmed},
	OrderReject:               {from: []models.OrderStatus{models.OrderPendingConfirmation}, to: models.OrderRejected},
	OrderStartPreparation:     {from: []models.OrderStatus{models.OrderConfirmed}, to: models.OrderPreparing},
	OrderMarkReady:            {from: []models.OrderStatus{models.OrderPreparing}, to: models.OrderReady},
	OrderMarkServed:           {from: []models.OrderStatus{models.OrderReady}, to: models.OrderServed, autoComplete: true},
	OrderMarkCollected:        {from: []models.OrderStatus{models.OrderReady}, to: models.OrderCollected, autoComplete: true},
	OrderMarkReadyForDispatch: {from: []models.OrderStatus{models.OrderConfirmed, models.OrderReady}, to: models.OrderReadyForDispatch},
	OrderAssignDriver:         {from: []models.OrderStatus{models.OrderReadyForDispatch}},
	OrderMarkOutForDelivery:   {from: []models.OrderStatus{models.OrderReadyForDispatch, models.OrderReady}, to: models.OrderOutForDelivery},
	OrderMarkDelivered:        {from: []models.OrderStatus{models.OrderOutForDelivery}, to: models.OrderDelivered, autoComplete: true},
	OrderComplete:             {from: []models.OrderStatus{models.OrderServed, models.OrderCollected, models.OrderDelivered}, to: models.OrderCompleted},
	OrderCancel:               {from: []models.OrderStatus{models.OrderPendingConfirmation, models.OrderConfirmed}, to: models.OrderCancelled},
	OrderUpdateItems:          {from: []models.OrderStatus{models.OrderPendingConfirmation, models.OrderConfirmed}},
}

// orderTransitionsFor lists the transitions defined for a kind.
func orderTransitionsFor(kind models.OrderKind) []OrderTransition {
	common := []OrderTransition{
		OrderConfirm, OrderReject, OrderStartPreparation, OrderMarkReady,
		OrderComplete, OrderCancel, OrderUpdateItems,
	}
	switch kind {
	case models.KindEatIn:
		return append(common, OrderMarkServed)
	case models.KindTakeaway:
		return append(common, OrderMarkCollected)
	case models.KindDelivery:
		return append(common, OrderMarkReadyForDispatch, OrderAssignDriver, OrderMarkOutForDelivery, OrderMarkDelivered)
	}
	return nil
}

func kindSupports(kind models.OrderKind, t OrderTransition) bool {
	for _, x := range orderTransitionsFor(kind) {
		if x == t {
			return true
		}
	}
	return false
}

func invalidOrderTransition(o *models.Order, t OrderTransition) error {
	return &models.InvalidStateTransitionError{
		Entity:     EntityOrder,
		ID:         o.ID,
		Transition: string(t),
		Current:    string(o.Status),
	}
}

// CheckOrderTransition reports whether t is legal from o's current status
// without touching o.
func CheckOrderTransition(o *models.Order, t OrderTransition) error {
	if t == OrderComplete && o.Status == models.OrderCompleted {
		return nil
	}
	rule, ok := orderRules[t]
	if !ok || !kindSupports(o.Kind, t) {
		return invalidOrderTransition(o, t)
	}
	for _, s := range rule.from {
		if o.Status == s {
			return nil
		}
	}
	return invalidOrderTransition(o, t)
}

// ApplyOrderTransition moves o along t and bumps UpdatedAt. Completing an
// already completed order is the only no-op; it returns false and leaves the
// timestamp alone. Transitions that keep the status (assignDriver,
// updateItems) are applied by their own helpers.
func ApplyOrderTransition(o *models.Order, t OrderTransition, now time.Time) (bool, error) {
	if err := CheckOrderTransition(o, t); err != nil {
		return false, err
	}
	if t == OrderComplete && o.Status == models.OrderCompleted {
		return false, nil
	}
	rule := orderRules[t]
	if rule.to == "" {
		return false, invalidOrderTransition(o, t)
	}
	o.Status = rule.to
	if rule.autoComplete {
		o.Status = models.OrderCompleted
	}
	o.UpdatedAt = now
	return true, nil
}

// AssignDriverToOrder sets the driver of a READY_FOR_DISPATCH delivery. The
// status and timestamp stay as they are.
func AssignDriverToOrder(o *models.Order, driverID int64) error {
	if driverID <= 0 {
		return &models.ValidationError{Field: "driverID", Reason: "must be positive"}
	}
	if err := CheckOrderTransition(o, OrderAssignDriver); err != nil {
		return err
	}
	o.Delivery.AssignedDriverID = driverID
	return nil
}

// ReplaceOrderItems swaps the items of an order that has not started cooking.
func ReplaceOrderItems(o *models.Order, items []models.Item, now time.Time) error {
	if err := CheckOrderTransition(o, OrderUpdateItems); err != nil {
		return err
	}
	return o.SetItems(items, now)
}

// releasesTable reports whether an eat-in order in status s no longer needs
// its table.
func releasesTable(o *models.Order) bool {
	if o.Kind != models.KindEatIn {
		return false
	}
	return o.Status == models.OrderCompleted || o.Status == models.OrderCancelled || o.Status == models.OrderRejected
}
