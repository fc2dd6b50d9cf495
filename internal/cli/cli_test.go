package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/minderhq/minder/internal/store"
)

func TestRunTaskRoundTrip(t *testing.T) {
	root := t.TempDir()

	if code := Run([]string{"--root", root, "--user", "u1", "--quiet", "init"}); code != ExitOK {
		t.Fatalf("init exit = %d", code)
	}
	if code := Run([]string{"--root", root, "--user", "u1", "task", "add buy milk by 2026-03-06"}); code != ExitOK {
		t.Fatalf("task exit = %d", code)
	}

	st, err := store.Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rows := st.AllTasks()
	if len(rows) != 1 || rows[0].Name != "buy milk" || rows[0].DueDate != "2026-03-06" {
		t.Fatalf("rows = %#v", rows)
	}

	if code := Run([]string{"--root", root, "--user", "u1", "task", "mark buy milk done"}); code != ExitOK {
		t.Fatalf("complete exit = %d", code)
	}
	st, err = store.Open(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !st.AllTasks()[0].Done() {
		t.Fatal("task not completed")
	}
}

func TestRunExitCodes(t *testing.T) {
	t.Setenv("MINDER_USER", "")
	root := t.TempDir()

	if code := Run([]string{"--root", root, "--user", "u1", "bogus"}); code != ExitUsage {
		t.Fatalf("unknown command exit = %d", code)
	}
	if code := Run([]string{"--root", root, "--user", "u1", "delete", "ghost"}); code != ExitNotFound {
		t.Fatalf("delete missing exit = %d", code)
	}
	if code := Run([]string{"--root", root, "task", "add x by 2026-03-06"}); code != ExitUsage {
		t.Fatalf("missing user exit = %d", code)
	}
}

func TestRunHelpWorksWithCorruptStore(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "tasks.yaml"), []byte("{not yaml"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if code := Run([]string{"--root", root, "help"}); code != ExitOK {
		t.Fatalf("help exit = %d", code)
	}
	if code := Run([]string{"--root", root, "bogus"}); code != ExitUsage {
		t.Fatalf("unknown command exit = %d", code)
	}
	// Store-backed commands still surface the corruption.
	if code := Run([]string{"--root", root, "--user", "u1", "today"}); code != ExitInternal {
		t.Fatalf("today exit = %d", code)
	}
}

func TestRunConfigSet(t *testing.T) {
	root := t.TempDir()
	if code := Run([]string{"--root", root, "--quiet", "config", "set", "tie_break", "newest"}); code != ExitOK {
		t.Fatal("config set failed")
	}
	st, err := store.Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if st.Config().TieBreak != store.TieBreakNewest {
		t.Fatalf("tie_break = %q", st.Config().TieBreak)
	}
	if code := Run([]string{"--root", root, "config", "set", "tie_break", "sideways"}); code != ExitUsage {
		t.Fatal("invalid value accepted")
	}
}
