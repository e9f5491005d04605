package platform

import (
	"context"
	"errors"
	"testing"
)

func TestLifecycle_StartAndStop(t *testing.T) {
	lc := NewLifecycle(nil)

	var order []string
	lc.Append(Hook{
		Name:  "first",
		Start: func(context.Context) error { order = append(order, "start first"); return nil },
		Stop:  func(context.Context) error { order = append(order, "stop first"); return nil },
	})
	lc.OnStart("second", func(context.Context) error { order = append(order, "start second"); return nil })
	lc.OnStop("third", func(context.Context) error { order = append(order, "stop third"); return nil })

	if err := lc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !lc.IsStarted() {
		t.Error("IsStarted() = false after Start()")
	}
	if err := lc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if lc.IsStarted() {
		t.Error("IsStarted() = true after Stop()")
	}

	want := []string{"start first", "start second", "stop third", "stop first"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestLifecycle_StartAlreadyStarted(t *testing.T) {
	lc := NewLifecycle(nil)
	if err := lc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := lc.Start(context.Background()); err == nil {
		t.Error("expected error on second Start()")
	}
}

func TestLifecycle_StopWithoutStart(t *testing.T) {
	lc := NewLifecycle(nil)
	called := false
	lc.OnStop("x", func(context.Context) error { called = true; return nil })

	if err := lc.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if called {
		t.Error("stop hook ran without Start()")
	}
}

func TestLifecycle_StartFailureRollsBack(t *testing.T) {
	lc := NewLifecycle(nil)

	var stopped []string
	lc.Append(Hook{
		Name:  "db",
		Start: func(context.Context) error { return nil },
		Stop:  func(context.Context) error { stopped = append(stopped, "db"); return nil },
	})
	lc.Append(Hook{
		Name:  "cron",
		Start: func(context.Context) error { return errors.New("bad schedule") },
		Stop:  func(context.Context) error { stopped = append(stopped, "cron"); return nil },
	})
	lc.Append(Hook{
		Name: "never",
		Stop: func(context.Context) error { stopped = append(stopped, "never"); return nil },
	})

	err := lc.Start(context.Background())
	if err == nil {
		t.Fatal("expected start error")
	}
	if err.Error() != "starting cron: bad schedule" {
		t.Errorf("error = %q", err.Error())
	}
	if lc.IsStarted() {
		t.Error("IsStarted() = true after failed Start()")
	}
	if len(stopped) != 1 || stopped[0] != "db" {
		t.Errorf("stopped = %v, want [db]", stopped)
	}
}

func TestLifecycle_StopJoinsErrors(t *testing.T) {
	lc := NewLifecycle(nil)
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	lc.OnStop("a", func(context.Context) error { return errA })
	lc.OnStop("b", func(context.Context) error { return errB })

	if err := lc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	err := lc.Stop(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Stop() error = %v, want both hook errors", err)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestLifecycle_RegisterCloser(t *testing.T) {
	lc := NewLifecycle(nil)
	closed := 0
	lc.RegisterCloser("client", closerFunc(func() error { closed++; return nil }))

	_ = lc.Start(context.Background())
	_ = lc.Stop(context.Background())
	_ = lc.Stop(context.Background())

	if closed != 1 {
		t.Errorf("closed = %d, want 1", closed)
	}
}
