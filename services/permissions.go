package services

import (
	"fmt"
	"sort"

	"restaurant-core/models"
)

// PermissionTable maps roles to permitted actions. It is immutable after
// construction; With returns a modified copy.
type PermissionTable struct {
	grants map[models.Role]map[models.Permission]struct{}
}

// DefaultPermissions is the stock role layout of the restaurant.
func DefaultPermissions() map[models.Role][]models.Permission {
	return map[models.Role][]models.Permission{
		models.RoleCustomer: {
			models.PermPlaceTakeawayOrder,
			models.PermPlaceDeliveryOrder,
			models.PermCancelOwnOrder,
			models.PermRequestBooking,
			models.PermCancelOwnBooking,
		},
		models.RoleWaiter: {
			models.PermTakeEatInOrder,
			models.PermPlaceTakeawayOrder,
			models.PermActForCustomer,
			models.PermConfirmOrder,
			models.PermServeOrder,
			models.PermHandOverOrder,
			models.PermCancelAnyOrder,
			models.PermViewOrders,
			models.PermRequestBooking,
			models.PermCancelAnyBooking,
			models.PermViewBookings,
		},
		models.RoleChef: {
			models.PermPrepareOrder,
			models.PermDispatchOrder,
			models.PermViewOrders,
		},
		models.RoleDriver: {
			models.PermDeliverOrder,
			models.PermViewOrders,
		},
		models.RoleManager: append([]models.Permission(nil), models.Permissions...),
	}
}

func DefaultPermissionTable() *PermissionTable {
	pt, err := NewPermissionTable(DefaultPermissions())
	if err != nil {
		panic(err)
	}
	return pt
}

// NewPermissionTable validates and copies grants. Roles missing from grants
// get no permissions.
func NewPermissionTable(grants map[models.Role][]models.Permission) (*PermissionTable, error) {
	pt := &PermissionTable{grants: make(map[models.Role]map[models.Permission]struct{}, len(grants))}
	for role, perms := range grants {
		if !role.Valid() {
			return nil, fmt.Errorf("permission table: unknown role %q", role)
		}
		set := make(map[models.Permission]struct{}, len(perms))
		for _, p := range perms {
			if !p.Valid() {
				return nil, fmt.Errorf("permission table: unknown permission %q for role %s", p, role)
			}
			set[p] = struct{}{}
		}
		pt.grants[role] = set
	}
	return pt, nil
}

// PermissionsFor returns the role's permissions sorted by name.
func (pt *PermissionTable) PermissionsFor(role models.Role) []models.Permission {
	set := pt.grants[role]
	out := make([]models.Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (pt *PermissionTable) Has(role models.Role, p models.Permission) bool {
	_, ok := pt.grants[role][p]
	return ok
}

// With returns a copy where role holds exactly perms.
func (pt *PermissionTable) With(role models.Role, perms ...models.Permission) (*PermissionTable, error) {
	grants := make(map[models.Role][]models.Permission, len(pt.grants)+1)
	for r := range pt.grants {
		grants[r] = pt.PermissionsFor(r)
	}
	grants[role] = perms
	return NewPermissionTable(grants)
}

// authenticate is step one of every operation.
func authenticate(actor *models.User) error {
	if actor == nil || actor.ID <= 0 {
		return models.ErrAuthenticationRequired
	}
	return nil
}

func (pt *PermissionTable) require(actor *models.User, p models.Permission) error {
	if pt.Has(actor.Role, p) {
		return nil
	}
	return &models.AuthorizationError{ActorID: actor.ID, Role: actor.Role, Permission: p}
}

// requireEither rejects an actor holding neither permission. It runs before
// the entity is loaded; requireOwnOrAny then settles ownership.
func (pt *PermissionTable) requireEither(actor *models.User, ownPerm, anyPerm models.Permission) error {
	if pt.Has(actor.Role, ownPerm) || pt.Has(actor.Role, anyPerm) {
		return nil
	}
	return &models.AuthorizationError{ActorID: actor.ID, Role: actor.Role, Permission: anyPerm}
}

// requireOwnOrAny decides ownership first, then checks the matching permission:
// the owner passes with the "own" permission, anyone passes with "any".
func (pt *PermissionTable) requireOwnOrAny(actor *models.User, ownerID int64, ownPerm, anyPerm models.Permission) error {
	if actor.ID == ownerID && pt.Has(actor.Role, ownPerm) {
		return nil
	}
	if pt.Has(actor.Role, anyPerm) {
		return nil
	}
	missing := anyPerm
	if actor.ID == ownerID {
		missing = ownPerm
	}
	return &models.AuthorizationError{ActorID: actor.ID, Role: actor.Role, Permission: missing}
}

// requireOnBehalf checks p, plus ACT_FOR_CUSTOMER when the actor works for
// someone else.
func (pt *PermissionTable) requireOnBehalf(actor *models.User, customerID int64, p models.Permission) error {
	if err := pt.require(actor, p); err != nil {
		return err
	}
	if customerID != actor.ID {
		return pt.require(actor, models.PermActForCustomer)
	}
	return nil
}

// requireOwnerOrView lets owners read their own records and viewers read all.
func (pt *PermissionTable) requireOwnerOrView(actor *models.User, ownerID int64, view models.Permission) error {
	if actor.ID == ownerID {
		return nil
	}
	return pt.require(actor, view)
}
