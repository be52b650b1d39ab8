package config

import (
	"fmt"
	"os"

	"restaurant-core/models"

	"gopkg.in/yaml.v3"
)

// Plan is the fixed restaurant setup: the seating plan and optional
// permission overrides per role.
type Plan struct {
	Tables      []TableSpec         `yaml:"tables"`
	Permissions map[string][]string `yaml:"permissions"`
	Staff       []StaffSpec         `yaml:"staff"`
}

type TableSpec struct {
	Number   int `yaml:"number"`
	Capacity int `yaml:"capacity"`
}

// StaffSpec seeds a user. Password may reference env vars (${WAITER_PW}).
type StaffSpec struct {
	ID       int64  `yaml:"id"`
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
	ChatID   int64  `yaml:"chat_id"`
	Password string `yaml:"password"`
}

// DefaultPlan is used when no plan file is configured.
func DefaultPlan() *Plan {
	return &Plan{Tables: []TableSpec{
		{Number: 1, Capacity: 2},
		{Number: 2, Capacity: 2},
		{Number: 3, Capacity: 4},
		{Number: 4, Capacity: 4},
		{Number: 5, Capacity: 6},
		{Number: 6, Capacity: 8},
	}}
}

// LoadPlan reads a plan file, expanding ${VAR} references first.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return ParsePlan([]byte(os.ExpandEnv(string(data))))
}

func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Plan) Validate() error {
	if len(p.Tables) == 0 {
		return fmt.Errorf("plan: no tables")
	}
	seen := make(map[int]bool, len(p.Tables))
	for _, t := range p.Tables {
		if t.Number <= 0 || t.Capacity <= 0 {
			return fmt.Errorf("plan: table %d: number and capacity must be positive", t.Number)
		}
		if seen[t.Number] {
			return fmt.Errorf("plan: duplicate table %d", t.Number)
		}
		seen[t.Number] = true
	}
	for role, perms := range p.Permissions {
		if !models.Role(role).Valid() {
			return fmt.Errorf("plan: unknown role %q", role)
		}
		for _, perm := range perms {
			if !models.Permission(perm).Valid() {
				return fmt.Errorf("plan: role %s: unknown permission %q", role, perm)
			}
		}
	}
	for _, s := range p.Staff {
		if s.ID <= 0 || !models.Role(s.Role).Valid() {
			return fmt.Errorf("plan: staff %q needs a positive id and a known role", s.Name)
		}
	}
	return nil
}

// TableModels builds AVAILABLE tables from the plan.
func (p *Plan) TableModels() ([]*models.Table, error) {
	out := make([]*models.Table, 0, len(p.Tables))
	for _, t := range p.Tables {
		tbl, err := models.NewTable(t.Number, t.Capacity)
		if err != nil {
			return nil, err
		}
		out = append(out, tbl)
	}
	return out, nil
}

// PermissionOverrides converts the permissions section. Roles not listed
// keep their defaults.
func (p *Plan) PermissionOverrides() map[models.Role][]models.Permission {
	out := make(map[models.Role][]models.Permission, len(p.Permissions))
	for role, perms := range p.Permissions {
		list := make([]models.Permission, 0, len(perms))
		for _, perm := range perms {
			list = append(list, models.Permission(perm))
		}
		out[models.Role(role)] = list
	}
	return out
}
