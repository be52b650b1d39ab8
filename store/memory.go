package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"restaurant-core/models"
)

// The memory stores keep private copies: Save stores a clone and every read
// returns clones, so callers never share state with the store.

type MemoryOrders struct {
	mu     sync.RWMutex
	orders map[int64]*models.Order
	seq    *Sequence
}

func NewMemoryOrders() *MemoryOrders {
	return &MemoryOrders{orders: make(map[int64]*models.Order), seq: NewSequence(0)}
}

func (m *MemoryOrders) Save(_ context.Context, o *models.Order) (*models.Order, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	c := o.Clone()
	if c.ID == 0 {
		if err := c.SetID(m.seq.Next()); err != nil {
			return nil, err
		}
	} else {
		m.seq.Observe(c.ID)
	}
	m.mu.Lock()
	m.orders[c.ID] = c
	m.mu.Unlock()
	if o.ID == 0 {
		_ = o.SetID(c.ID)
	}
	return c.Clone(), nil
}

func (m *MemoryOrders) FindByID(_ context.Context, id int64) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orders[id].Clone(), nil
}

func (m *MemoryOrders) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.orders[id]
	delete(m.orders, id)
	return ok, nil
}

func (m *MemoryOrders) filter(keep func(*models.Order) bool) []*models.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Order
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryOrders) FindByCustomer(_ context.Context, customerID int64) ([]*models.Order, error) {
	return m.filter(func(o *models.Order) bool { return o.CustomerID == customerID }), nil
}

func (m *MemoryOrders) FindByStatuses(_ context.Context, statuses ...models.OrderStatus) ([]*models.Order, error) {
	want := make(map[models.OrderStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	return m.filter(func(o *models.Order) bool { return want[o.Status] }), nil
}

func (m *MemoryOrders) FindOutstanding(_ context.Context) ([]*models.Order, error) {
	return m.filter(func(o *models.Order) bool { return !o.Status.Terminal() }), nil
}

type MemoryBookings struct {
	mu       sync.RWMutex
	bookings map[int64]*models.Booking
	seq      *Sequence
	duration time.Duration
}

// NewMemoryBookings uses duration as the length of every booking slot in
// range queries.
func NewMemoryBookings(duration time.Duration) *MemoryBookings {
	if duration <= 0 {
		duration = models.DefaultBookingDuration
	}
	return &MemoryBookings{bookings: make(map[int64]*models.Booking), seq: NewSequence(0), duration: duration}
}

func (m *MemoryBookings) Save(_ context.Context, b *models.Booking) (*models.Booking, error) {
	c := b.Clone()
	if c.ID == 0 {
		if err := c.SetID(m.seq.Next()); err != nil {
			return nil, err
		}
	} else {
		m.seq.Observe(c.ID)
	}
	m.mu.Lock()
	m.bookings[c.ID] = c
	m.mu.Unlock()
	if b.ID == 0 {
		_ = b.SetID(c.ID)
	}
	return c.Clone(), nil
}

func (m *MemoryBookings) FindByID(_ context.Context, id int64) (*models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bookings[id].Clone(), nil
}

func (m *MemoryBookings) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.bookings[id]
	delete(m.bookings, id)
	return ok, nil
}

func (m *MemoryBookings) filter(keep func(*models.Booking) bool) []*models.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Booking
	for _, b := range m.bookings {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateTime().Equal(out[j].DateTime()) {
			return out[i].DateTime().Before(out[j].DateTime())
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *MemoryBookings) FindByCustomer(_ context.Context, customerID int64) ([]*models.Booking, error) {
	return m.filter(func(b *models.Booking) bool { return b.CustomerID == customerID }), nil
}

func (m *MemoryBookings) FindByDate(_ context.Context, date time.Time) ([]*models.Booking, error) {
	y, mo, d := date.Date()
	return m.filter(func(b *models.Booking) bool {
		by, bm, bd := b.Date.Date()
		return by == y && bm == mo && bd == d
	}), nil
}

func (m *MemoryBookings) FindByTableAndRange(_ context.Context, table int, start, end time.Time) ([]*models.Booking, error) {
	return m.filter(func(b *models.Booking) bool {
		return b.TableNumber == table && b.Overlaps(start, end, m.duration)
	}), nil
}

type MemoryTables struct {
	mu     sync.RWMutex
	tables map[int]*models.Table
}

func NewMemoryTables(tables ...*models.Table) *MemoryTables {
	m := &MemoryTables{tables: make(map[int]*models.Table, len(tables))}
	for _, t := range tables {
		m.tables[t.Number] = t.Clone()
	}
	return m
}

func (m *MemoryTables) Save(_ context.Context, t *models.Table) error {
	if t.Number <= 0 || t.Capacity <= 0 {
		return &models.ValidationError{Field: "table", Reason: "number and capacity must be positive"}
	}
	m.mu.Lock()
	m.tables[t.Number] = t.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryTables) FindByNumber(_ context.Context, number int) (*models.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tables[number].Clone(), nil
}

func (m *MemoryTables) FindAll(_ context.Context) ([]*models.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Table, 0, len(m.tables))
	for _, t := range m.tables {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

type MemoryUsers struct {
	mu    sync.RWMutex
	users map[int64]*models.User
	creds map[int64]*models.Credential
	seq   *Sequence
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		users: make(map[int64]*models.User),
		creds: make(map[int64]*models.Credential),
		seq:   NewSequence(0),
	}
}

func (m *MemoryUsers) Save(_ context.Context, u *models.User) (*models.User, error) {
	if !u.Role.Valid() {
		return nil, &models.ValidationError{Field: "role", Reason: "unknown role " + string(u.Role)}
	}
	c := *u
	if c.ID == 0 {
		c.ID = m.seq.Next()
	} else {
		m.seq.Observe(c.ID)
	}
	m.mu.Lock()
	m.users[c.ID] = &c
	m.mu.Unlock()
	out := c
	return &out, nil
}

func (m *MemoryUsers) FindByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (m *MemoryUsers) FindByChatID(_ context.Context, chatID int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if chatID != 0 && u.ChatID == chatID {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MemoryUsers) FindByRole(_ context.Context, role models.Role) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.User
	for _, u := range m.users {
		if u.Role == role {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryUsers) FindCredential(_ context.Context, userID int64) (*models.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.creds[userID]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (m *MemoryUsers) SaveCredential(_ context.Context, c *models.Credential) error {
	cp := *c
	m.mu.Lock()
	m.creds[c.UserID] = &cp
	m.mu.Unlock()
	return nil
}
