package services

import (
	"context"
	"fmt"
	"time"

	"restaurant-core/logger"
	"restaurant-core/models"

	"github.com/google/uuid"
)

// PlaceOrderInput describes a new order. Only the fields of Kind are read.
// CustomerID defaults to the acting user.
type PlaceOrderInput struct {
	Kind       models.OrderKind
	CustomerID int64
	Items      []models.Item

	TableNumber int

	PickupTime time.Time

	DeliveryAddress       string
	EstimatedDeliveryTime *time.Time
}

// OrderService runs every order operation as: authenticate, authorize, load,
// transition, table side effect, save, notify.
type OrderService struct {
	base
	orders OrderStore
}

func NewOrderService(orders OrderStore, alloc *Allocator, perms *PermissionTable, log *logger.Logger, opts ...Option) *OrderService {
	return &OrderService{base: newBase(perms, alloc, log, opts), orders: orders}
}

func placePermission(kind models.OrderKind) (models.Permission, error) {
	switch kind {
	case models.KindEatIn:
		return models.PermTakeEatInOrder, nil
	case models.KindTakeaway:
		return models.PermPlaceTakeawayOrder, nil
	case models.KindDelivery:
		return models.PermPlaceDeliveryOrder, nil
	}
	return "", &models.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown order kind %q", kind)}
}

func (s *OrderService) PlaceOrder(ctx context.Context, actor *models.User, in PlaceOrderInput) (o *models.Order, err error) {
	defer func() { record(EntityOrder, "place", err) }()
	if err := authenticate(actor); err != nil {
		return nil, err
	}
	perm, err := placePermission(in.Kind)
	if err != nil {
		return nil, err
	}
	if in.CustomerID == 0 {
		in.CustomerID = actor.ID
	}
	if err := s.perms.requireOnBehalf(actor, in.CustomerID, perm); err != nil {
		return nil, err
	}

	now := s.now()
	switch in.Kind {
	case models.KindEatIn:
		o, err = models.NewEatInOrder(in.CustomerID, in.TableNumber, in.Items, now)
	case models.KindTakeaway:
		o, err = models.NewTakeawayOrder(in.CustomerID, in.PickupTime, in.Items, now)
	case models.KindDelivery:
		o, err = models.NewDeliveryOrder(in.CustomerID, in.DeliveryAddress, in.EstimatedDeliveryTime, in.Items, now)
	}
	if err != nil {
		return nil, err
	}

	if o.Kind == models.KindEatIn {
		if err := s.alloc.Occupy(ctx, o.TableNumber()); err != nil {
			return nil, err
		}
	}
	saved, err := s.orders.Save(ctx, o)
	if err != nil {
		if o.Kind == models.KindEatIn {
			s.undoTable(ctx, o.TableNumber())
		}
		return nil, fmt.Errorf("save order: %w", err)
	}

	s.log.Info(ctx, "order_placed", "order placed",
		"order_id", saved.ID, "kind", string(saved.Kind), "customer_id", saved.CustomerID,
		"actor_id", actor.ID, "total", saved.TotalPrice.StringFixed(2))
	s.notify(ctx, s.orderNotification(NotifyStatusUpdate, saved, "", actor))
	return saved, nil
}

// undoTable frees a table taken by an operation that then failed.
func (s *OrderService) undoTable(ctx context.Context, number int) {
	if err := s.alloc.Release(ctx, number); err != nil {
		s.log.Error(ctx, "table_compensation", "could not free table after failed save", err, "table", number)
	}
}

func (s *OrderService) ConfirmOrder(ctx context.Context, actor *models.User, id int64) (*models.Order, error) {
	return s.step(ctx, actor, id, OrderConfirm, models.PermConfirmOrder, nil)
}

func (s *OrderService) RejectOrder(ctx context.Context, actor *models.User, id int64) (*models.Order, error) {
	return s.step(ctx, actor, id, OrderReject, models.PermConfirmOrder, nil)
}

func (s *OrderService) StartPreparation(ctx context.Context, actor *models.User, id int64) (*models.Order, error) {
	return s.step(ctx, actor, id, OrderStartPreparation, models.PermPrepareOrder, nil)
}

func (s *OrderService) MarkReady(ctx context.Context, actor *models.User, id int64) (*models.Order, error) {
	return s.step(ctx, actor, id, OrderMarkReady, models.PermPrepareOrder, nil)
}

// MarkServed serves an eat-in order; it completes at once and frees the table.
func (s *OrderService) MarkServed(ctx context.Context, actor *models.User, id int64) (*models.Order, error) {
	return s.step(ctx, actor, id, OrderMarkServed, models.PermServeOrder, nil)
}

func (s *OrderService) MarkCollected(ctx context.Context, actor *models.User, id int64) (*models.Order, error) {
	return s.step(ctx, actor, id, OrderMarkCollected, models.PermHandOverOrder, nil)
}

func (s *OrderService) MarkReadyForDispatch(ctx context.Context, actor *models.User, id int64) (*models.Order, error) {
	return s.step(ctx, actor, id, OrderMarkReadyForDispatch, models.PermDispatchOrder, nil)
}

func (s *OrderService) MarkOutForDelivery(ctx context.Context, actor *models.User, id int64) (*models.Order, error) {
	return s.step(ctx, actor, id, OrderMarkOutForDelivery, models.PermDeliverOrder, assignedTo(actor))
}

func (s *OrderService) MarkDelivered(ctx context.Context, actor *models.User, id int64) (*models.Order, error) {
	return s.step(ctx, actor, id, OrderMarkDelivered, models.PermDeliverOrder, assignedTo(actor))
}

// CompleteOrder is idempotent on COMPLETED orders.
func (s *OrderService) CompleteOrder(ctx context.Context, actor *models.User, id int64) (*models.Order, error) {
	return s.step(ctx, actor, id, OrderComplete, models.PermConfirmOrder, nil)
}

// assignedTo rejects drivers other than the one assigned to the order.
func assignedTo(actor *models.User) func(*models.Order) error {
	return func(o *models.Order) error {
		if o.Kind != models.KindDelivery || o.DriverID() == actor.ID {
			return nil
		}
		return &models.AuthorizationError{
			ActorID:    actor.ID,
			Role:       actor.Role,
			Permission: models.PermDeliverOrder,
			Reason:     fmt.Sprintf("order %d is assigned to driver %d", o.ID, o.DriverID()),
		}
	}
}

// CancelOrder is open to the owner with CANCEL_OWN_ORDER and to anyone with
// CANCEL_ANY_ORDER. Eat-in tables are released.
func (s *OrderService) CancelOrder(ctx context.Context, actor *models.User, id int64) (o *models.Order, err error) {
	defer func() { record(EntityOrder, string(OrderCancel), err) }()
	if err := authenticate(actor); err != nil {
		return nil, err
	}
	if err := s.perms.requireEither(actor, models.PermCancelOwnOrder, models.PermCancelAnyOrder); err != nil {
		return nil, err
	}
	if err := validID("orderID", id); err != nil {
		return nil, err
	}
	unlock, err := s.locks.Lock(ctx, orderKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.requireOwnOrAny(actor, o.CustomerID, models.PermCancelOwnOrder, models.PermCancelAnyOrder); err != nil {
		return nil, err
	}
	return s.commit(ctx, actor, o, OrderCancel)
}

// step is the shared body of the permission-then-transition operations.
func (s *OrderService) step(ctx context.Context, actor *models.User, id int64, t OrderTransition, perm models.Permission, guard func(*models.Order) error) (o *models.Order, err error) {
	defer func() { record(EntityOrder, string(t), err) }()
	if err := authenticate(actor); err != nil {
		return nil, err
	}
	if err := s.perms.require(actor, perm); err != nil {
		return nil, err
	}
	if err := validID("orderID", id); err != nil {
		return nil, err
	}
	unlock, err := s.locks.Lock(ctx, orderKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if guard != nil {
		if err := guard(o); err != nil {
			return nil, err
		}
	}
	return s.commit(ctx, actor, o, t)
}

// commit applies t to the loaded copy, frees the table when needed, saves,
// and notifies. A failed save puts the table back.
func (s *OrderService) commit(ctx context.Context, actor *models.User, o *models.Order, t OrderTransition) (*models.Order, error) {
	old := o.Status
	changed, err := ApplyOrderTransition(o, t, s.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		s.log.Debug(ctx, "order_noop", "transition left order unchanged", "order_id", o.ID, "transition", string(t))
		return o, nil
	}

	var saved *models.Order
	save := func() (err error) {
		if saved, err = s.orders.Save(ctx, o); err != nil {
			return fmt.Errorf("save order %d: %w", o.ID, err)
		}
		return nil
	}
	if releasesTable(o) {
		err = s.alloc.ReleaseAround(ctx, o.TableNumber(), save)
	} else {
		err = save()
	}
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "order_"+string(t), "order status changed",
		"order_id", saved.ID, "from", string(old), "to", string(saved.Status), "actor_id", actor.ID)
	kind := NotifyStatusUpdate
	switch saved.Status {
	case models.OrderConfirmed:
		kind = NotifyConfirmation
	case models.OrderCancelled:
		kind = NotifyCancellation
	}
	s.notify(ctx, s.orderNotification(kind, saved, old, actor))
	return saved, nil
}

// AssignDriver is the staff-side assignment of a READY_FOR_DISPATCH delivery.
func (s *OrderService) AssignDriver(ctx context.Context, actor *models.User, id, driverID int64) (*models.Order, error) {
	return s.assign(ctx, actor, id, driverID, models.PermAssignDriver, "assignDriver")
}

// AcceptDelivery lets a driver take an unassigned READY_FOR_DISPATCH order.
func (s *OrderService) AcceptDelivery(ctx context.Context, actor *models.User, id int64) (*models.Order, error) {
	if err := authenticate(actor); err != nil {
		record(EntityOrder, "acceptDelivery", err)
		return nil, err
	}
	return s.assign(ctx, actor, id, actor.ID, models.PermDeliverOrder, "acceptDelivery")
}

func (s *OrderService) assign(ctx context.Context, actor *models.User, id, driverID int64, perm models.Permission, op string) (o *models.Order, err error) {
	defer func() { record(EntityOrder, op, err) }()
	if err := authenticate(actor); err != nil {
		return nil, err
	}
	if err := s.perms.require(actor, perm); err != nil {
		return nil, err
	}
	if err := validID("orderID", id); err != nil {
		return nil, err
	}
	unlock, err := s.locks.Lock(ctx, orderKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if op == "acceptDelivery" && o.DriverID() != 0 && o.DriverID() != actor.ID {
		return nil, &models.AuthorizationError{
			ActorID:    actor.ID,
			Role:       actor.Role,
			Permission: perm,
			Reason:     fmt.Sprintf("order %d is already taken by driver %d", o.ID, o.DriverID()),
		}
	}
	if err := AssignDriverToOrder(o, driverID); err != nil {
		return nil, err
	}
	saved, err := s.orders.Save(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("save order %d: %w", o.ID, err)
	}
	s.log.Info(ctx, "order_driver_assigned", "driver assigned",
		"order_id", saved.ID, "driver_id", driverID, "actor_id", actor.ID)
	s.notify(ctx, s.orderNotification(NotifyDriverAssigned, saved, saved.Status, actor))
	return saved, nil
}

// UpdateItems replaces the items while the kitchen has not started.
func (s *OrderService) UpdateItems(ctx context.Context, actor *models.User, id int64, items []models.Item) (o *models.Order, err error) {
	defer func() { record(EntityOrder, string(OrderUpdateItems), err) }()
	if err := authenticate(actor); err != nil {
		return nil, err
	}
	if err := validID("orderID", id); err != nil {
		return nil, err
	}
	unlock, err := s.locks.Lock(ctx, orderKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	perm, err := placePermission(o.Kind)
	if err != nil {
		return nil, err
	}
	if err := s.perms.requireOnBehalf(actor, o.CustomerID, perm); err != nil {
		return nil, err
	}
	if err := ReplaceOrderItems(o, items, s.now()); err != nil {
		return nil, err
	}
	saved, err := s.orders.Save(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("save order %d: %w", o.ID, err)
	}
	s.log.Info(ctx, "order_items_updated", "order items replaced",
		"order_id", saved.ID, "items", len(saved.Items), "total", saved.TotalPrice.StringFixed(2))
	return saved, nil
}

func (s *OrderService) load(ctx context.Context, id int64) (*models.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	if o == nil {
		return nil, &models.NotFoundError{Entity: EntityOrder, ID: id}
	}
	return o, nil
}

// GetOrder is open to the order's customer and to VIEW_ORDERS holders.
func (s *OrderService) GetOrder(ctx context.Context, actor *models.User, id int64) (*models.Order, error) {
	if err := authenticate(actor); err != nil {
		return nil, err
	}
	if err := validID("orderID", id); err != nil {
		return nil, err
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.requireOwnerOrView(actor, o.CustomerID, models.PermViewOrders); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OrderService) ListOutstanding(ctx context.Context, actor *models.User) ([]*models.Order, error) {
	if err := authenticate(actor); err != nil {
		return nil, err
	}
	if err := s.perms.require(actor, models.PermViewOrders); err != nil {
		return nil, err
	}
	return s.orders.FindOutstanding(ctx)
}

func (s *OrderService) ListByStatuses(ctx context.Context, actor *models.User, statuses ...models.OrderStatus) ([]*models.Order, error) {
	if err := authenticate(actor); err != nil {
		return nil, err
	}
	if err := s.perms.require(actor, models.PermViewOrders); err != nil {
		return nil, err
	}
	return s.orders.FindByStatuses(ctx, statuses...)
}

func (s *OrderService) ListCustomerOrders(ctx context.Context, actor *models.User, customerID int64) ([]*models.Order, error) {
	if err := authenticate(actor); err != nil {
		return nil, err
	}
	if err := validID("customerID", customerID); err != nil {
		return nil, err
	}
	if err := s.perms.requireOwnerOrView(actor, customerID, models.PermViewOrders); err != nil {
		return nil, err
	}
	return s.orders.FindByCustomer(ctx, customerID)
}

func (s *OrderService) orderNotification(kind NotificationKind, o *models.Order, old models.OrderStatus, actor *models.User) Notification {
	return Notification{
		ID:          uuid.New(),
		Kind:        kind,
		Entity:      EntityOrder,
		EntityID:    o.ID,
		CustomerID:  o.CustomerID,
		DriverID:    o.DriverID(),
		TableNumber: o.TableNumber(),
		OldStatus:   string(old),
		NewStatus:   string(o.Status),
		ActorID:     actor.ID,
		At:          s.now(),
	}
}
