package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModelCompletesOnDoneMsg(t *testing.T) {
	m := newModel(context.Background(), "sync", nil)

	next, cmd := m.Update(doneMsg{details: []string{"plans=2"}})
	if cmd == nil {
		t.Fatal("expected quit command after completion")
	}
	got := next.(*model)
	if !got.done || got.err != nil {
		t.Fatalf("unexpected state done=%v err=%v", got.done, got.err)
	}
	view := got.View()
	if !strings.Contains(view, "sync") || !strings.Contains(view, "plans=2") {
		t.Fatalf("view missing result: %q", view)
	}
	if got.ctx.Err() == nil {
		t.Fatal("expected run context to be released")
	}
}

func TestModelTickAdvancesSpinner(t *testing.T) {
	m := newModel(context.Background(), "sync", nil)
	next, cmd := m.Update(tickMsg{})
	if cmd == nil {
		t.Fatal("expected next tick")
	}
	if next.(*model).frame != 1 {
		t.Fatalf("frame=%d want 1", next.(*model).frame)
	}

	m.done = true
	if _, cmd := m.Update(tickMsg{}); cmd != nil {
		t.Fatal("ticks after completion must not reschedule")
	}
}

func TestModelInterruptCancelsRun(t *testing.T) {
	m := newModel(context.Background(), "sync", nil)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	got := next.(*model)
	if !errors.Is(got.err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", got.err)
	}
	if got.ctx.Err() == nil {
		t.Fatal("expected run context to be cancelled")
	}
}

func TestModelInitRunsTask(t *testing.T) {
	m := newModel(context.Background(), "sync", func(context.Context) ([]string, error) {
		return []string{"ok"}, errors.New("boom")
	})
	if m.Init() == nil {
		t.Fatal("expected init command")
	}
	msg := func() tea.Msg {
		details, err := m.run(m.ctx)
		return doneMsg{details: details, err: err}
	}()
	next, _ := m.Update(msg)
	got := next.(*model)
	if got.err == nil || got.err.Error() != "boom" {
		t.Fatalf("err=%v want boom", got.err)
	}
}

func TestRenderResultShowsError(t *testing.T) {
	out := RenderResult("login", []string{"server=http://localhost:8080"}, errors.New("invalid credentials"))
	for _, want := range []string{"login", "server=http://localhost:8080", "invalid credentials"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}
