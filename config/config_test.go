package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"restaurant-core/models"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"STORAGE", "BOOKING_DURATION_MINUTES", "LOCK_TIMEOUT_SECONDS", "DB_PORT", "REDIS_DB", "STAFF_CHAT_ID", "AUTO_MIGRATE"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage != StoragePostgres {
		t.Errorf("Storage = %q, want %q", cfg.Storage, StoragePostgres)
	}
	if cfg.BookingDuration != 2*time.Hour {
		t.Errorf("BookingDuration = %v, want 2h", cfg.BookingDuration)
	}
	if cfg.LockTimeout != 5*time.Second {
		t.Errorf("LockTimeout = %v, want 5s", cfg.LockTimeout)
	}
	if cfg.AutoMigrate {
		t.Errorf("AutoMigrate = true, want false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE", "Memory")
	t.Setenv("BOOKING_DURATION_MINUTES", "90")
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("STAFF_CHAT_ID", "-1001234")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage != StorageMemory {
		t.Errorf("Storage = %q, want memory", cfg.Storage)
	}
	if cfg.BookingDuration != 90*time.Minute {
		t.Errorf("BookingDuration = %v, want 90m", cfg.BookingDuration)
	}
	if !cfg.AutoMigrate {
		t.Errorf("AutoMigrate = false, want true")
	}
	if cfg.Telegram.StaffChatID != -1001234 {
		t.Errorf("StaffChatID = %d", cfg.Telegram.StaffChatID)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct{ key, val string }{
		{"STORAGE", "sqlite"},
		{"BOOKING_DURATION_MINUTES", "0"},
		{"LOCK_TIMEOUT_SECONDS", "x"},
		{"DB_PORT", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Errorf("Load with %s=%q: want error", tt.key, tt.val)
			}
		})
	}
}

const samplePlan = `
tables:
  - {number: 2, capacity: 4}
  - {number: 1, capacity: 2}
permissions:
  WAITER: [TAKE_EAT_IN_ORDER, CONFIRM_ORDER]
staff:
  - {id: 10, name: Ann, role: MANAGER, chat_id: 555, password: "${PLAN_TEST_PW}"}
`

func TestLoadPlan(t *testing.T) {
	t.Setenv("PLAN_TEST_PW", "s3cret")
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(samplePlan), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	tables, err := p.TableModels()
	if err != nil {
		t.Fatalf("TableModels: %v", err)
	}
	if len(tables) != 2 || tables[0].Number != 2 || tables[0].Status != models.TableAvailable {
		t.Errorf("tables = %+v", tables)
	}
	over := p.PermissionOverrides()
	if got := over[models.RoleWaiter]; len(got) != 2 || got[1] != models.PermConfirmOrder {
		t.Errorf("waiter overrides = %v", got)
	}
	if p.Staff[0].Password != "s3cret" {
		t.Errorf("staff password not expanded: %q", p.Staff[0].Password)
	}
}

func TestParsePlanValidation(t *testing.T) {
	tests := []struct {
		name, yaml, wantErr string
	}{
		{"empty", "tables: []", "no tables"},
		{"duplicate", "tables: [{number: 1, capacity: 2}, {number: 1, capacity: 4}]", "duplicate table 1"},
		{"zero capacity", "tables: [{number: 1, capacity: 0}]", "must be positive"},
		{"bad role", "tables: [{number: 1, capacity: 2}]\npermissions: {CHEFF: []}", "unknown role"},
		{"bad permission", "tables: [{number: 1, capacity: 2}]\npermissions: {CHEF: [COOK]}", "unknown permission"},
	}
	for _, tt := range tests {
		_, err := ParsePlan([]byte(tt.yaml))
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("%s: err = %v, want containing %q", tt.name, err, tt.wantErr)
		}
	}
	if err := DefaultPlan().Validate(); err != nil {
		t.Errorf("DefaultPlan invalid: %v", err)
	}
}
