package services

import (
	"errors"
	"testing"

	"restaurant-core/models"
)

func TestDefaultPermissions(t *testing.T) {
	pt := DefaultPermissionTable()
	tests := []struct {
		role models.Role
		perm models.Permission
		want bool
	}{
		{models.RoleCustomer, models.PermPlaceDeliveryOrder, true},
		{models.RoleCustomer, models.PermTakeEatInOrder, false},
		{models.RoleCustomer, models.PermCancelAnyOrder, false},
		{models.RoleWaiter, models.PermTakeEatInOrder, true},
		{models.RoleWaiter, models.PermApproveBooking, false},
		{models.RoleChef, models.PermPrepareOrder, true},
		{models.RoleChef, models.PermConfirmOrder, false},
		{models.RoleDriver, models.PermDeliverOrder, true},
		{models.RoleDriver, models.PermAssignDriver, false},
		{models.RoleManager, models.PermApproveBooking, true},
		{models.RoleManager, models.PermAssignDriver, true},
	}
	for _, tt := range tests {
		if got := pt.Has(tt.role, tt.perm); got != tt.want {
			t.Errorf("Has(%s, %s) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
	if got := len(pt.PermissionsFor(models.RoleManager)); got != len(models.Permissions) {
		t.Errorf("manager has %d permissions, want all %d", got, len(models.Permissions))
	}
}

func TestNewPermissionTableRejectsUnknown(t *testing.T) {
	if _, err := NewPermissionTable(map[models.Role][]models.Permission{"CASHIER": nil}); err == nil {
		t.Error("unknown role accepted")
	}
	if _, err := NewPermissionTable(map[models.Role][]models.Permission{models.RoleChef: {"FLY"}}); err == nil {
		t.Error("unknown permission accepted")
	}
}

func TestWithOverridesOneRole(t *testing.T) {
	base := DefaultPermissionTable()
	pt, err := base.With(models.RoleWaiter, models.PermApproveBooking)
	if err != nil {
		t.Fatal(err)
	}
	if !pt.Has(models.RoleWaiter, models.PermApproveBooking) || pt.Has(models.RoleWaiter, models.PermTakeEatInOrder) {
		t.Errorf("waiter override not exact: %v", pt.PermissionsFor(models.RoleWaiter))
	}
	if !pt.Has(models.RoleChef, models.PermPrepareOrder) {
		t.Error("other roles lost their grants")
	}
	if base.Has(models.RoleWaiter, models.PermApproveBooking) {
		t.Error("With mutated the original table")
	}
}

func TestRequireOwnOrAny(t *testing.T) {
	pt := DefaultPermissionTable()
	customer := &models.User{ID: 5, Role: models.RoleCustomer}
	other := &models.User{ID: 6, Role: models.RoleCustomer}
	waiter := &models.User{ID: 7, Role: models.RoleWaiter}
	chef := &models.User{ID: 8, Role: models.RoleChef}

	tests := []struct {
		name        string
		actor       *models.User
		wantMissing models.Permission
	}{
		{"owner with own permission", customer, ""},
		{"other customer", other, models.PermCancelAnyOrder},
		{"staff with any permission", waiter, ""},
		{"staff without any permission", chef, models.PermCancelAnyOrder},
	}
	for _, tt := range tests {
		err := pt.requireOwnOrAny(tt.actor, 5, models.PermCancelOwnOrder, models.PermCancelAnyOrder)
		if tt.wantMissing == "" {
			if err != nil {
				t.Errorf("%s: unexpected %v", tt.name, err)
			}
			continue
		}
		var ae *models.AuthorizationError
		if !errors.As(err, &ae) {
			t.Errorf("%s: err = %v, want AuthorizationError", tt.name, err)
			continue
		}
		if ae.Permission != tt.wantMissing || ae.ActorID != tt.actor.ID || ae.Role != tt.actor.Role {
			t.Errorf("%s: error = %+v", tt.name, ae)
		}
	}
}

func TestRequireEither(t *testing.T) {
	pt := DefaultPermissionTable()
	for _, role := range []models.Role{models.RoleCustomer, models.RoleWaiter, models.RoleManager} {
		if err := pt.requireEither(&models.User{ID: 1, Role: role}, models.PermCancelOwnOrder, models.PermCancelAnyOrder); err != nil {
			t.Errorf("%s: unexpected %v", role, err)
		}
	}
	for _, role := range []models.Role{models.RoleChef, models.RoleDriver} {
		err := pt.requireEither(&models.User{ID: 1, Role: role}, models.PermCancelOwnOrder, models.PermCancelAnyOrder)
		if !errors.Is(err, models.ErrUnauthorized) {
			t.Errorf("%s: err = %v, want unauthorized", role, err)
		}
	}
}

func TestRequireOnBehalf(t *testing.T) {
	pt := DefaultPermissionTable()
	customer := &models.User{ID: 5, Role: models.RoleCustomer}
	waiter := &models.User{ID: 7, Role: models.RoleWaiter}

	if err := pt.requireOnBehalf(customer, 5, models.PermPlaceTakeawayOrder); err != nil {
		t.Errorf("customer for self: %v", err)
	}
	if err := pt.requireOnBehalf(customer, 6, models.PermPlaceTakeawayOrder); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("customer for another: err = %v", err)
	}
	if err := pt.requireOnBehalf(waiter, 6, models.PermTakeEatInOrder); err != nil {
		t.Errorf("waiter for customer: %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	for _, u := range []*models.User{nil, {ID: 0, Role: models.RoleManager}} {
		if err := authenticate(u); !errors.Is(err, models.ErrAuthenticationRequired) {
			t.Errorf("authenticate(%v) = %v", u, err)
		}
	}
}
