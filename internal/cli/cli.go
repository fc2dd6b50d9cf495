package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/minderhq/minder/internal/command"
	"github.com/minderhq/minder/internal/dateres"
	"github.com/minderhq/minder/internal/parse"
	"github.com/minderhq/minder/internal/remind"
	"github.com/minderhq/minder/internal/store"
)

// Exit codes
const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitNotFound = 3
	ExitInternal = 10
)

type GlobalFlags struct {
	Root  string
	User  string
	Plain bool
	Quiet bool
}

func Run(args []string) int {
	gf, rest, err := extractGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return ExitUsage
	}

	if len(rest) == 0 {
		printHelp()
		return ExitUsage
	}

	cmd := rest[0]
	cmdArgs := rest[1:]

	// help and unknown commands resolve before the store is touched, so a
	// corrupt table never blocks them.
	switch cmd {
	case "help", "--help", "-h":
		printHelp()
		return ExitOK
	case "init", "config", "cfg", "task", "today", "all", "ls", "list",
		"add-today", "edit", "delete", "rm", "tz", "timezone", "serve":
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printHelp()
		return ExitUsage
	}

	st, err := store.Open(gf.Root)
	if err != nil {
		fmt.Fprintln(os.Stderr, "minder:", err)
		return ExitInternal
	}
	h := command.New(st, parse.New(dateres.Natural{}))

	switch cmd {
	case "init":
		return cmdInit(st, gf)
	case "config", "cfg":
		return cmdConfig(st, gf, cmdArgs)
	case "task":
		return cmdTask(h, gf, cmdArgs)
	case "today":
		return cmdToday(h, gf)
	case "all", "ls", "list":
		return cmdAll(h, st, gf)
	case "add-today":
		return cmdAddToday(h, gf, cmdArgs)
	case "edit":
		return cmdEdit(h, gf, cmdArgs)
	case "delete", "rm":
		return cmdDelete(h, gf, cmdArgs)
	case "tz", "timezone":
		return cmdTimezone(h, st, gf, cmdArgs)
	case "serve":
		return cmdServe(st, gf, cmdArgs)
	default:
		return ExitInternal
	}
}

func printHelp() {
	fmt.Print(`minder — personal task assistant with reminders

Usage:
  minder [global flags] <command> [args]

Global flags:
  --root <path>   Store root (default: ~/.minder or MINDER_ROOT)
  --user <id>     Acting owner id (default: MINDER_USER)
  --plain         TSV output for list commands
  --quiet

Commands:
  init
  task "<free text>"          add or complete from natural language
  today                       your incomplete tasks due today
  all                         all of your tasks
  add-today "<name>"          add a task due on your local today
  edit "<name>" [--name <new>] [--due YYYY-MM-DD]
  delete "<name>"
  tz <zone>                   set your IANA timezone (e.g. Asia/Singapore)
  config show
  config set <key> <value>    tie_break|interval_minutes|digest_format
  serve [--interval <dur>]    run the reminder loop, digests to stdout
`)
}

func extractGlobalFlags(args []string) (GlobalFlags, []string, error) {
	gf := GlobalFlags{User: os.Getenv("MINDER_USER")}

	if env := os.Getenv("MINDER_ROOT"); env != "" {
		gf.Root = env
	} else {
		home, _ := os.UserHomeDir()
		if home != "" {
			gf.Root = filepath.Join(home, ".minder")
		} else {
			gf.Root = ".minder"
		}
	}

	out := make([]string, 0, len(args))
	skip := 0
	for i := 0; i < len(args); i++ {
		if skip > 0 {
			skip--
			continue
		}
		a := args[i]
		switch a {
		case "--root":
			if i+1 >= len(args) {
				return gf, nil, errors.New("--root requires a value")
			}
			gf.Root = args[i+1]
			skip = 1
		case "--user":
			if i+1 >= len(args) {
				return gf, nil, errors.New("--user requires a value")
			}
			gf.User = args[i+1]
			skip = 1
		case "--plain":
			gf.Plain = true
		case "--quiet":
			gf.Quiet = true
		default:
			out = append(out, a)
		}
	}
	return gf, out, nil
}

func requireUser(gf GlobalFlags) (string, bool) {
	user := strings.TrimSpace(gf.User)
	if user == "" {
		fmt.Fprintln(os.Stderr, "minder: no acting user (set --user or MINDER_USER)")
		return "", false
	}
	return user, true
}

func cmdInit(st *store.Store, gf GlobalFlags) int {
	if err := st.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "init:", err)
		return ExitInternal
	}
	if !gf.Quiet {
		fmt.Println("Initialized minder store at:", st.Root)
	}
	return ExitOK
}

func cmdTask(h *command.Handler, gf GlobalFlags, args []string) int {
	user, ok := requireUser(gf)
	if !ok {
		return ExitUsage
	}
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, `Usage: minder task "<free text>"`)
		return ExitUsage
	}
	fmt.Println(h.Task(user, strings.Join(args, " ")))
	return ExitOK
}

func cmdToday(h *command.Handler, gf GlobalFlags) int {
	user, ok := requireUser(gf)
	if !ok {
		return ExitUsage
	}
	fmt.Println(h.ListToday(user))
	return ExitOK
}

func cmdAll(h *command.Handler, st *store.Store, gf GlobalFlags) int {
	user, ok := requireUser(gf)
	if !ok {
		return ExitUsage
	}
	if gf.Plain {
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDUE\tDONE\tRECUR\tPRI\tNAME")
		for _, t := range st.TasksForOwner(user) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				t.ID, t.DueDate, t.Complete, t.Recurrence, t.Priority, t.Name)
		}
		_ = w.Flush()
		return ExitOK
	}
	fmt.Println(h.ListAll(user))
	return ExitOK
}

func cmdAddToday(h *command.Handler, gf GlobalFlags, args []string) int {
	user, ok := requireUser(gf)
	if !ok {
		return ExitUsage
	}
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, `Usage: minder add-today "<name>"`)
		return ExitUsage
	}
	fmt.Println(h.AddToday(user, strings.Join(args, " ")))
	return ExitOK
}

func cmdEdit(h *command.Handler, gf GlobalFlags, args []string) int {
	user, ok := requireUser(gf)
	if !ok {
		return ExitUsage
	}
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	newName := fs.String("name", "", "New task name")
	newDue := fs.String("due", "", "New due date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, `Usage: minder edit "<name>" [--name <new>] [--due YYYY-MM-DD]`)
		return ExitUsage
	}
	msg := h.EditTask(user, strings.Join(rest, " "), *newName, *newDue)
	fmt.Println(msg)
	if strings.HasPrefix(msg, "No task named") {
		return ExitNotFound
	}
	return ExitOK
}

func cmdDelete(h *command.Handler, gf GlobalFlags, args []string) int {
	user, ok := requireUser(gf)
	if !ok {
		return ExitUsage
	}
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, `Usage: minder delete "<name>"`)
		return ExitUsage
	}
	msg := h.DeleteTask(user, strings.Join(args, " "))
	fmt.Println(msg)
	if strings.HasPrefix(msg, "No task named") {
		return ExitNotFound
	}
	return ExitOK
}

func cmdTimezone(h *command.Handler, st *store.Store, gf GlobalFlags, args []string) int {
	user, ok := requireUser(gf)
	if !ok {
		return ExitUsage
	}
	if len(args) == 0 {
		if name, ok := st.Timezone(user); ok {
			fmt.Println("Timezone:", name)
		} else {
			fmt.Println("Timezone: (not set, using UTC)")
		}
		return ExitOK
	}
	fmt.Println(h.SetTimezone(user, args[0]))
	return ExitOK
}

func cmdConfig(st *store.Store, gf GlobalFlags, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: minder config <show|set> ...")
		return ExitUsage
	}
	switch args[0] {
	case "show":
		cfg := st.Config()
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVALUE")
		fmt.Fprintf(w, "root\t%s\n", st.Root)
		fmt.Fprintf(w, "tie_break\t%s\n", cfg.TieBreak)
		fmt.Fprintf(w, "interval_minutes\t%d\n", cfg.IntervalMinutes)
		fmt.Fprintf(w, "digest_format\t%s\n", cfg.DigestFormat)
		_ = w.Flush()
		return ExitOK
	case "set":
		return cmdConfigSet(st, gf, args[1:])
	default:
		fmt.Fprintln(os.Stderr, "Usage: minder config <show|set> ...")
		return ExitUsage
	}
}

func cmdConfigSet(st *store.Store, gf GlobalFlags, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: minder config set <key> <value>")
		return ExitUsage
	}
	key := strings.ToLower(strings.TrimSpace(args[0]))
	value := strings.TrimSpace(strings.Join(args[1:], " "))
	cfg := st.Config()

	switch key {
	case "tie_break":
		switch strings.ToLower(value) {
		case store.TieBreakOldest, store.TieBreakNewest:
			cfg.TieBreak = strings.ToLower(value)
		default:
			fmt.Fprintf(os.Stderr, "Invalid value for tie_break: %q (use oldest|newest)\n", value)
			return ExitUsage
		}
	case "interval_minutes":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			fmt.Fprintf(os.Stderr, "Invalid value for interval_minutes: %q\n", value)
			return ExitUsage
		}
		cfg.IntervalMinutes = n
	case "digest_format":
		switch strings.ToLower(value) {
		case "chat", "plain":
			cfg.DigestFormat = strings.ToLower(value)
		default:
			fmt.Fprintf(os.Stderr, "Invalid value for digest_format: %q (use chat|plain)\n", value)
			return ExitUsage
		}
	default:
		fmt.Fprintln(os.Stderr, "Unknown config key:", key)
		fmt.Fprintln(os.Stderr, "Allowed keys: tie_break, interval_minutes, digest_format")
		return ExitUsage
	}

	if err := st.SaveConfig(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config set:", err)
		return ExitInternal
	}
	if !gf.Quiet {
		fmt.Printf("Updated %s\n", key)
	}
	return ExitOK
}

func cmdServe(st *store.Store, gf GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	interval := fs.Duration("interval", 0, "Cycle interval (default: config interval_minutes)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	cfg := st.Config()
	cadence := time.Duration(cfg.IntervalMinutes) * time.Minute
	if *interval > 0 {
		cadence = *interval
	}

	sched := remind.New(st, consoleNotifier{format: cfg.DigestFormat}, cadence)
	if !gf.Quiet {
		fmt.Printf("Reminder loop running every %s (store: %s)\n", cadence, st.Root)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	sched.Run(ctx)
	return ExitOK
}
