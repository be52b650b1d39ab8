package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Command is a parsed staff command. IDs holds its numeric arguments.
type Command struct {
	Name     string
	IDs      []int64
	Date     time.Time // /bookings only; zero means today
	Password string    // /login only
}

type commandSpec struct {
	ids  int
	help string
}

var commandSpecs = map[string]commandSpec{
	"start":         {0, "show this help"},
	"help":          {0, "show this help"},
	"login":         {1, "/login <user id> <password>"},
	"logout":        {0, "end the session"},
	"orders":        {0, "outstanding orders"},
	"order":         {1, "/order <id>"},
	"confirm":       {1, "/confirm <order id>"},
	"reject":        {1, "/reject <order id>"},
	"prepare":       {1, "/prepare <order id>"},
	"ready":         {1, "/ready <order id>"},
	"serve":         {1, "/serve <order id>"},
	"collect":       {1, "/collect <order id>"},
	"dispatch":      {1, "/dispatch <order id>"},
	"assign":        {2, "/assign <order id> <driver id>"},
	"accept":        {1, "/accept <order id>"},
	"out":           {1, "/out <order id>"},
	"delivered":     {1, "/delivered <order id>"},
	"cancel":        {1, "/cancel <order id>"},
	"bookings":      {0, "/bookings [YYYY-MM-DD]"},
	"approve":       {1, "/approve <booking id>"},
	"decline":       {1, "/decline <booking id>"},
	"cancelbooking": {1, "/cancelbooking <booking id>"},
	"tables":        {0, "table status"},
}

var ErrNotCommand = errors.New("not a command")

// ParseCommand turns "/confirm 12" into a Command. Bot mentions
// ("/confirm@my_bot 12") are accepted.
func ParseCommand(text string) (Command, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return Command{}, ErrNotCommand
	}
	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	spec, ok := commandSpecs[name]
	if !ok {
		return Command{}, fmt.Errorf("unknown command /%s", name)
	}
	args := fields[1:]
	cmd := Command{Name: name}

	switch name {
	case "login":
		if len(args) != 2 {
			return Command{}, fmt.Errorf("usage: %s", spec.help)
		}
		id, err := parseID(args[0])
		if err != nil {
			return Command{}, err
		}
		cmd.IDs = []int64{id}
		cmd.Password = args[1]
		return cmd, nil
	case "bookings":
		if len(args) > 1 {
			return Command{}, fmt.Errorf("usage: %s", spec.help)
		}
		if len(args) == 1 {
			d, err := time.ParseInLocation("2006-01-02", args[0], time.Local)
			if err != nil {
				return Command{}, fmt.Errorf("bad date %q, want YYYY-MM-DD", args[0])
			}
			cmd.Date = d
		}
		return cmd, nil
	}

	if len(args) != spec.ids {
		return Command{}, fmt.Errorf("usage: %s", spec.help)
	}
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return Command{}, err
		}
		cmd.IDs = append(cmd.IDs, id)
	}
	return cmd, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad id %q", s)
	}
	return id, nil
}

// Callback data is "<command>:<id>", e.g. "approve:12".
func callbackData(command string, id int64) string {
	return fmt.Sprintf("%s:%d", command, id)
}

// ParseCallback maps inline button data back to a Command.
func ParseCallback(data string) (Command, error) {
	name, idStr, ok := strings.Cut(data, ":")
	if !ok {
		return Command{}, fmt.Errorf("bad callback %q", data)
	}
	spec, known := commandSpecs[name]
	if !known || spec.ids != 1 || name == "login" {
		return Command{}, fmt.Errorf("bad callback %q", data)
	}
	id, err := parseID(idStr)
	if err != nil {
		return Command{}, err
	}
	return Command{Name: name, IDs: []int64{id}}, nil
}

func helpText() string {
	var b strings.Builder
	b.WriteString("Staff commands:\n")
	for _, name := range []string{
		"login", "logout", "orders", "order", "confirm", "reject", "prepare", "ready",
		"serve", "collect", "dispatch", "assign", "accept", "out", "delivered", "cancel",
		"bookings", "approve", "decline", "cancelbooking", "tables",
	} {
		spec := commandSpecs[name]
		if strings.HasPrefix(spec.help, "/") {
			b.WriteString(spec.help)
		} else {
			fmt.Fprintf(&b, "/%s - %s", name, spec.help)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
