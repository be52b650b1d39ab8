package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderKind discriminates the Order variants.
type OrderKind string

const (
	KindEatIn    OrderKind = "EAT_IN"
	KindTakeaway OrderKind = "TAKEAWAY"
	KindDelivery OrderKind = "DELIVERY"
)

func (k OrderKind) Valid() bool {
	switch k {
	case KindEatIn, KindTakeaway, KindDelivery:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderPendingConfirmation OrderStatus = "PENDING_CONFIRMATION"
	OrderConfirmed           OrderStatus = "CONFIRMED"
	OrderPreparing           OrderStatus = "PREPARING"
	OrderReady               OrderStatus = "READY"
	OrderReadyForDispatch    OrderStatus = "READY_FOR_DISPATCH"
	OrderOutForDelivery      OrderStatus = "OUT_FOR_DELIVERY"
	OrderServed              OrderStatus = "SERVED"
	OrderCollected           OrderStatus = "COLLECTED"
	OrderDelivered           OrderStatus = "DELIVERED"
	OrderCompleted           OrderStatus = "COMPLETED"
	OrderCancelled           OrderStatus = "CANCELLED"
	OrderRejected            OrderStatus = "REJECTED"
)

// TerminalOrderStatuses are the statuses with no outgoing transition.
var TerminalOrderStatuses = []OrderStatus{OrderCompleted, OrderCancelled, OrderRejected}

func (s OrderStatus) Terminal() bool {
	for _, t := range TerminalOrderStatuses {
		if s == t {
			return true
		}
	}
	return false
}

type EatInDetails struct {
	TableNumber int
}

type TakeawayDetails struct {
	PickupTime time.Time
}

type DeliveryDetails struct {
	Address               string
	EstimatedDeliveryTime *time.Time
	AssignedDriverID      int64 // 0 = unassigned
}

// Order is a tagged union: exactly one of EatIn, Takeaway, Delivery is set and
// it matches Kind.
type Order struct {
	ID         int64
	Kind       OrderKind
	CustomerID int64
	Status     OrderStatus
	Items      []Item
	TotalPrice decimal.Decimal
	OrderedAt  time.Time
	UpdatedAt  time.Time

	EatIn    *EatInDetails
	Takeaway *TakeawayDetails
	Delivery *DeliveryDetails
}

func newOrder(kind OrderKind, customerID int64, items []Item, now time.Time) (*Order, error) {
	if customerID <= 0 {
		return nil, &ValidationError{Field: "customerID", Reason: "must be positive"}
	}
	if len(items) == 0 {
		return nil, &ValidationError{Field: "items", Reason: "must not be empty"}
	}
	o := &Order{
		Kind:       kind,
		CustomerID: customerID,
		Status:     OrderPendingConfirmation,
		OrderedAt:  now,
		UpdatedAt:  now,
	}
	o.Items = append([]Item(nil), items...)
	o.TotalPrice = SumPrices(o.Items)
	return o, nil
}

func NewEatInOrder(customerID int64, tableNumber int, items []Item, now time.Time) (*Order, error) {
	if tableNumber <= 0 {
		return nil, &ValidationError{Field: "tableNumber", Reason: "must be positive"}
	}
	o, err := newOrder(KindEatIn, customerID, items, now)
	if err != nil {
		return nil, err
	}
	o.EatIn = &EatInDetails{TableNumber: tableNumber}
	return o, nil
}

func NewTakeawayOrder(customerID int64, pickupTime time.Time, items []Item, now time.Time) (*Order, error) {
	if pickupTime.IsZero() {
		return nil, &ValidationError{Field: "pickupTime", Reason: "required"}
	}
	o, err := newOrder(KindTakeaway, customerID, items, now)
	if err != nil {
		return nil, err
	}
	o.Takeaway = &TakeawayDetails{PickupTime: pickupTime}
	return o, nil
}

func NewDeliveryOrder(customerID int64, address string, eta *time.Time, items []Item, now time.Time) (*Order, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, &ValidationError{Field: "deliveryAddress", Reason: "must not be blank"}
	}
	o, err := newOrder(KindDelivery, customerID, items, now)
	if err != nil {
		return nil, err
	}
	o.Delivery = &DeliveryDetails{Address: address}
	if eta != nil {
		t := *eta
		o.Delivery.EstimatedDeliveryTime = &t
	}
	return o, nil
}

// Validate checks the union shape and the derived total.
func (o *Order) Validate() error {
	if !o.Kind.Valid() {
		return &ValidationError{Field: "kind", Reason: "unknown order kind " + string(o.Kind)}
	}
	if o.CustomerID <= 0 {
		return &ValidationError{Field: "customerID", Reason: "must be positive"}
	}
	if len(o.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "must not be empty"}
	}
	switch o.Kind {
	case KindEatIn:
		if o.EatIn == nil || o.EatIn.TableNumber <= 0 || o.Takeaway != nil || o.Delivery != nil {
			return &ValidationError{Field: "eatIn", Reason: "eat-in order needs a positive table number only"}
		}
	case KindTakeaway:
		if o.Takeaway == nil || o.EatIn != nil || o.Delivery != nil {
			return &ValidationError{Field: "takeaway", Reason: "takeaway order needs pickup details only"}
		}
	case KindDelivery:
		if o.Delivery == nil || strings.TrimSpace(o.Delivery.Address) == "" || o.EatIn != nil || o.Takeaway != nil {
			return &ValidationError{Field: "delivery", Reason: "delivery order needs an address only"}
		}
	}
	if !o.TotalPrice.Equal(SumPrices(o.Items)) {
		return &ValidationError{Field: "totalPrice", Reason: "does not match items"}
	}
	return nil
}

// SetID assigns the store id once.
func (o *Order) SetID(id int64) error {
	if id <= 0 {
		return &ValidationError{Field: "id", Reason: "must be positive"}
	}
	if o.ID > 0 && o.ID != id {
		return &ValidationError{Field: "id", Reason: "order id is already assigned"}
	}
	o.ID = id
	return nil
}

// SetItems replaces the item list, recomputes the total and bumps UpdatedAt.
func (o *Order) SetItems(items []Item, now time.Time) error {
	if len(items) == 0 {
		return &ValidationError{Field: "items", Reason: "must not be empty"}
	}
	o.Items = append([]Item(nil), items...)
	o.TotalPrice = SumPrices(o.Items)
	o.UpdatedAt = now
	return nil
}

func (o *Order) AddItem(it Item, now time.Time) {
	o.Items = append(o.Items, it)
	o.TotalPrice = SumPrices(o.Items)
	o.UpdatedAt = now
}

// RemoveItem drops the first item equal to it. Removing the last item is refused.
func (o *Order) RemoveItem(it Item, now time.Time) error {
	for i := range o.Items {
		if !o.Items[i].Equal(it) {
			continue
		}
		if len(o.Items) == 1 {
			return &ValidationError{Field: "items", Reason: "order must keep at least one item"}
		}
		o.Items = append(o.Items[:i:i], o.Items[i+1:]...)
		o.TotalPrice = SumPrices(o.Items)
		o.UpdatedAt = now
		return nil
	}
	return &NotFoundError{Entity: "item", ID: it.ID}
}

// TableNumber returns the eat-in table or 0.
func (o *Order) TableNumber() int {
	if o.EatIn == nil {
		return 0
	}
	return o.EatIn.TableNumber
}

// DriverID returns the assigned driver or 0.
func (o *Order) DriverID() int64 {
	if o.Delivery == nil {
		return 0
	}
	return o.Delivery.AssignedDriverID
}

// Clone returns a deep copy safe to hand out as a snapshot.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	if o.EatIn != nil {
		e := *o.EatIn
		c.EatIn = &e
	}
	if o.Takeaway != nil {
		t := *o.Takeaway
		c.Takeaway = &t
	}
	if o.Delivery != nil {
		d := *o.Delivery
		if o.Delivery.EstimatedDeliveryTime != nil {
			eta := *o.Delivery.EstimatedDeliveryTime
			d.EstimatedDeliveryTime = &eta
		}
		c.Delivery = &d
	}
	return &c
}
