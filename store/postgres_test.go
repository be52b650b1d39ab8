package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"restaurant-core/config"
	"restaurant-core/db"
	"restaurant-core/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests against a scratch database. They wipe every table, so
// point DB_* at a throwaway instance. Skipped in -short mode or without DB_HOST.
func setupPG(t *testing.T) context.Context {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	if os.Getenv("DB_HOST") == "" {
		t.Skip("skipping postgres integration test: DB_HOST not set")
	}
	ctx := context.Background()
	cfg, err := config.Load()
	require.NoError(t, err)
	require.NoError(t, db.Init(ctx, cfg.DB))
	t.Cleanup(db.Close)

	files, err := filepath.Glob("../migrations/*.sql")
	require.NoError(t, err)
	sort.Strings(files)
	for _, f := range files {
		schema, err := os.ReadFile(f)
		require.NoError(t, err)
		_, err = db.Pool.Exec(ctx, string(schema))
		require.NoError(t, err, f)
	}
	_, err = db.Pool.Exec(ctx, `TRUNCATE outbound_messages, booking_status_history, bookings,
		order_status_history, order_items, orders, user_credentials, users, restaurant_tables`)
	require.NoError(t, err)
	return ctx
}

func TestPGOrdersRoundTrip(t *testing.T) {
	ctx := setupPG(t)
	s, err := NewPGOrders(ctx, db.Pool)
	require.NoError(t, err)

	it, err := models.NewItem("Risotto", models.CategoryMain, decimal.RequireFromString("14.90"), true)
	require.NoError(t, err)
	eta := time.Now().Add(40 * time.Minute).UTC().Truncate(time.Second)
	o, err := models.NewDeliveryOrder(7, "5 Quay St", &eta, []models.Item{it, it}, time.Now().UTC().Truncate(time.Second))
	require.NoError(t, err)

	saved, err := s.Save(ctx, o)
	require.NoError(t, err)
	got, err := s.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.KindDelivery, got.Kind)
	assert.True(t, got.TotalPrice.Equal(decimal.RequireFromString("29.80")))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Risotto", got.Items[0].Name)
	assert.True(t, got.Delivery.EstimatedDeliveryTime.Equal(eta))

	got.Status = models.OrderCancelled
	_, err = s.Save(ctx, got)
	require.NoError(t, err)
	open, err := s.FindOutstanding(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	var history int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT count(*) FROM order_status_history WHERE order_id = $1`, saved.ID).Scan(&history))
	assert.Equal(t, 2, history)
}

// Two stores stand in for two processes sharing one database.
func TestPGOrdersIDsAcrossStores(t *testing.T) {
	ctx := setupPG(t)
	a, err := NewPGOrders(ctx, db.Pool)
	require.NoError(t, err)
	b, err := NewPGOrders(ctx, db.Pool)
	require.NoError(t, err)

	item := func(name string) []models.Item {
		it, err := models.NewItem(name, models.CategoryMain, decimal.RequireFromString("9.00"), false)
		require.NoError(t, err)
		return []models.Item{it}
	}
	now := time.Now().UTC().Truncate(time.Second)

	fromA, err := models.NewTakeawayOrder(1, now.Add(time.Hour), item("Pasta"), now)
	require.NoError(t, err)
	fromB, err := models.NewDeliveryOrder(2, "3 Dock Ln", nil, item("Curry"), now)
	require.NoError(t, err)
	savedA, err := a.Save(ctx, fromA)
	require.NoError(t, err)
	savedB, err := b.Save(ctx, fromB)
	require.NoError(t, err)
	require.NotEqual(t, savedA.ID, savedB.ID)

	gotA, err := a.FindByID(ctx, savedA.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KindTakeaway, gotA.Kind)
	assert.Equal(t, int64(1), gotA.CustomerID)
	assert.Equal(t, "Pasta", gotA.Items[0].Name)

	// an explicitly chosen id is never handed out by the sequence afterwards
	explicit, err := models.NewTakeawayOrder(3, now.Add(time.Hour), item("Salad"), now)
	require.NoError(t, err)
	require.NoError(t, explicit.SetID(savedB.ID+100))
	_, err = a.Save(ctx, explicit)
	require.NoError(t, err)
	next, err := models.NewTakeawayOrder(4, now.Add(time.Hour), item("Soup"), now)
	require.NoError(t, err)
	savedNext, err := b.Save(ctx, next)
	require.NoError(t, err)
	assert.Greater(t, savedNext.ID, savedB.ID+100)
}

func TestPGBookingsAndTables(t *testing.T) {
	ctx := setupPG(t)
	tables := NewPGTables(db.Pool)
	t1, _ := models.NewTable(1, 4)
	require.NoError(t, tables.Seed(ctx, []*models.Table{t1}))
	t1.Status = models.TableReserved
	require.NoError(t, tables.Save(ctx, t1))
	require.NoError(t, tables.Seed(ctx, []*models.Table{{Number: 1, Capacity: 4, Status: models.TableAvailable}}))
	got, err := tables.FindByNumber(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TableReserved, got.Status, "seeding keeps existing status")

	s, err := NewPGBookings(ctx, db.Pool, 2*time.Hour)
	require.NoError(t, err)
	day := time.Date(2026, 9, 12, 0, 0, 0, 0, time.Local)
	b, err := models.NewBooking(3, day, models.TimeOfDay{Hour: 19, Minute: 30}, 4, time.Now())
	require.NoError(t, err)
	b.Status = models.BookingConfirmed
	b.TableNumber = 1
	saved, err := s.Save(ctx, b)
	require.NoError(t, err)

	loaded, err := s.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TimeOfDay{Hour: 19, Minute: 30}, loaded.Time)
	assert.True(t, loaded.DateTime().Equal(b.DateTime()))

	inRange, err := s.FindByTableAndRange(ctx, 1, day.Add(21*time.Hour), day.Add(23*time.Hour))
	require.NoError(t, err)
	assert.Len(t, inRange, 1)
	outside, err := s.FindByTableAndRange(ctx, 1, day.Add(22*time.Hour), day.Add(23*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, outside)
}

func TestPGUsersCredentials(t *testing.T) {
	ctx := setupPG(t)
	s, err := NewPGUsers(ctx, db.Pool)
	require.NoError(t, err)

	_, err = s.Save(ctx, &models.User{ID: 12, Name: "Wanda", Role: models.RoleWaiter, ChatID: 555})
	require.NoError(t, err)
	u, err := s.FindByChatID(ctx, 555)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, int64(12), u.ID)

	until := time.Now().Add(time.Minute).UTC().Truncate(time.Microsecond)
	require.NoError(t, s.SaveCredential(ctx, &models.Credential{UserID: 12, PasswordHash: "h", Active: true, FailCount: 2, CooldownUntil: until}))
	c, err := s.FindCredential(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, 2, c.FailCount)
	assert.True(t, c.CooldownUntil.Equal(until))
}
