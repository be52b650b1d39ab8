package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"restaurant-core/bot"
	"restaurant-core/config"
	"restaurant-core/db"
	"restaurant-core/logger"
	"restaurant-core/metrics"
	"restaurant-core/models"
	"restaurant-core/services"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New("restaurant-core", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			if err := runMigrate(ctx, cfg, log); err != nil {
				fmt.Fprintln(os.Stderr, "migrate:", err)
				os.Exit(1)
			}
			return
		case "add-staff":
			if err := runAddStaff(ctx, cfg, log, os.Args[2:]); err != nil {
				fmt.Fprintln(os.Stderr, "add-staff:", err)
				os.Exit(1)
			}
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q (want migrate or add-staff)\n", os.Args[1])
			os.Exit(2)
		}
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "startup", "service stopped", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	metrics.Register()
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "metrics", "metrics server failed", err, "addr", cfg.MetricsAddr)
			}
		}()
		defer srv.Close()
		log.Info(ctx, "metrics", "serving metrics", "addr", cfg.MetricsAddr)
	}

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.Telegram.Token == "" {
		log.Info(ctx, "startup", "TOKEN not set, running without the staff bot")
		<-ctx.Done()
		return nil
	}
	b, err := bot.New(cfg.Telegram.Token, bot.Deps{
		Orders:   a.orders,
		Bookings: a.bookings,
		Tables:   a.alloc,
		Accounts: a.accounts,
		Users:    a.users,
		Log:      log,
	})
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	a.sink.Add("telegram", bot.NewNotifier(b.GetAPI(), a.users, cfg.Telegram.StaffChatID, log))
	log.Info(ctx, "startup", "bot started", "sinks", a.sink.Len())
	b.Start(ctx)
	return nil
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func runMigrate(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if err := db.Init(ctx, cfg.DB); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer db.Close()
	return applyMigrations(ctx, log)
}

// runAddStaff creates a staff user with a generated password and prints the
// password once.
func runAddStaff(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: add-staff <id> <name> <role>")
	}
	if cfg.Storage != config.StoragePostgres {
		return errors.New("add-staff needs STORAGE=postgres")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("bad id %q", args[0])
	}
	role := models.Role(args[2])
	if !role.Valid() || role == models.RoleCustomer {
		return fmt.Errorf("bad staff role %q", args[2])
	}

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	existing, err := a.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	u := &models.User{ID: id, Name: args[1], Role: role}
	if existing != nil {
		u.ChatID = existing.ChatID
	}
	if _, err := a.users.Save(ctx, u); err != nil {
		return err
	}
	password, err := services.GenerateSecurePassword()
	if err != nil {
		return err
	}
	if err := a.accounts.SetPassword(ctx, id, password); err != nil {
		return err
	}
	log.Info(ctx, "add_staff", "staff user stored", "user_id", id, "role", string(role))
	fmt.Printf("User %d (%s) password: %s\n", id, role, password)
	return nil
}
