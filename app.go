package main

import (
	"context"
	"fmt"

	"restaurant-core/config"
	"restaurant-core/db"
	"restaurant-core/logger"
	"restaurant-core/models"
	"restaurant-core/notify"
	"restaurant-core/services"
	"restaurant-core/store"
)

type userStore interface {
	services.UserDirectory
	services.CredentialStore
}

// app is the wired engine, independent of how it is driven.
type app struct {
	orders   *services.OrderService
	bookings *services.BookingService
	alloc    *services.Allocator
	accounts *services.Accounts
	users    userStore
	sink     *services.MultiSink
	closers  []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *app, err error) {
	a := &app{sink: services.NewMultiSink().Add("log", services.LogSink(log))}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	plan := config.DefaultPlan()
	if cfg.PlanPath != "" {
		if plan, err = config.LoadPlan(cfg.PlanPath); err != nil {
			return nil, err
		}
	}
	tables, err := plan.TableModels()
	if err != nil {
		return nil, err
	}
	perms := services.DefaultPermissionTable()
	for role, granted := range plan.PermissionOverrides() {
		if perms, err = perms.With(role, granted...); err != nil {
			return nil, fmt.Errorf("plan permissions: %w", err)
		}
	}

	var (
		orders   services.OrderStore
		bookings services.BookingStore
		registry services.TableRegistry
	)
	switch cfg.Storage {
	case config.StoragePostgres:
		if err := db.Init(ctx, cfg.DB); err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if cfg.AutoMigrate {
			if err := applyMigrations(ctx, log); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		pgTables := store.NewPGTables(db.Pool)
		if err := pgTables.Seed(ctx, tables); err != nil {
			return nil, fmt.Errorf("seed tables: %w", err)
		}
		registry = pgTables
		if orders, err = store.NewPGOrders(ctx, db.Pool); err != nil {
			return nil, err
		}
		if bookings, err = store.NewPGBookings(ctx, db.Pool, cfg.BookingDuration); err != nil {
			return nil, err
		}
		if a.users, err = store.NewPGUsers(ctx, db.Pool); err != nil {
			return nil, err
		}
		a.sink.Add("outbox", notify.NewOutbox(db.Pool))
	default:
		registry = store.NewMemoryTables(tables...)
		orders = store.NewMemoryOrders()
		bookings = store.NewMemoryBookings(cfg.BookingDuration)
		a.users = store.NewMemoryUsers()
	}

	var locker services.Locker = services.NewKeyedLocker(cfg.LockTimeout)
	if cfg.Redis.Addr != "" {
		client := store.NewRedisClient(cfg.Redis)
		if err := store.Ping(ctx, client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		locker = store.NewRedisLocker(client, cfg.LockTimeout, log)
	}

	if cfg.RabbitMQ.URL != "" {
		pub, err := notify.NewPublisher(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		a.sink.Add("rabbitmq", pub)
	}

	a.alloc = services.NewAllocator(registry, locker, log)
	opts := []services.Option{services.WithSink(a.sink), services.WithLocker(locker)}
	a.orders = services.NewOrderService(orders, a.alloc, perms, log, opts...)
	a.bookings = services.NewBookingService(bookings, a.alloc, perms, log, cfg.BookingDuration, opts...)
	a.accounts = services.NewAccounts(a.users, a.users, log)

	if err := seedStaff(ctx, a, plan, log); err != nil {
		return nil, err
	}
	return a, nil
}

// seedStaff stores the plan's staff. Passwords are only set for users that
// have none yet so a restart does not undo a rotation.
func seedStaff(ctx context.Context, a *app, plan *config.Plan, log *logger.Logger) error {
	for _, s := range plan.Staff {
		u := &models.User{ID: s.ID, Name: s.Name, Role: models.Role(s.Role), ChatID: s.ChatID}
		if existing, err := a.users.FindByID(ctx, s.ID); err != nil {
			return err
		} else if existing != nil && u.ChatID == 0 {
			u.ChatID = existing.ChatID
		}
		if _, err := a.users.Save(ctx, u); err != nil {
			return fmt.Errorf("seed staff %d: %w", s.ID, err)
		}
		if s.Password == "" {
			continue
		}
		cred, err := a.users.FindCredential(ctx, s.ID)
		if err != nil {
			return err
		}
		if cred != nil {
			continue
		}
		if err := a.accounts.SetPassword(ctx, s.ID, s.Password); err != nil {
			return fmt.Errorf("seed password %d: %w", s.ID, err)
		}
		log.Debug(ctx, "seed_staff", "staff password set", "user_id", s.ID)
	}
	return nil
}
