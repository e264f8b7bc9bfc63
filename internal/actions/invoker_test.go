package actions

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"huebctl/internal/history"
)

func testLedger(t *testing.T) *history.Ledger {
	t.Helper()
	l, err := history.Open(filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestInvokeUnknownEffect(t *testing.T) {
	inv := NewInvoker(NewRegistry(), nil)
	if err := inv.Invoke(context.Background(), "nope", nil, ""); err == nil {
		t.Error("Invoke(nope) succeeded")
	}
}

func TestInvokeRecordsRun(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	if err := reg.RegisterFunc("noop", func(ctx context.Context, args map[string]any) error {
		calls++
		return nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	ledger := testLedger(t)
	inv := NewInvoker(reg, ledger)

	if err := inv.Invoke(context.Background(), "noop", nil, ""); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if calls != 1 {
		t.Errorf("effect ran %d times, want 1", calls)
	}

	runs, err := ledger.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 || !runs[0].Completed() {
		t.Errorf("runs = %+v, want one completed run", runs)
	}
}

func TestInvokeDedupesOccurrence(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	reg.RegisterFunc("noop", func(ctx context.Context, args map[string]any) error {
		calls++
		return nil
	})

	inv := NewInvoker(reg, testLedger(t))
	key := "noop@07:30/1787643000"

	if err := inv.Invoke(context.Background(), "noop", nil, key); err != nil {
		t.Fatalf("first Invoke: %v", err)
	}
	if err := inv.Invoke(context.Background(), "noop", nil, key); err != nil {
		t.Fatalf("second Invoke: %v", err)
	}
	if calls != 1 {
		t.Errorf("effect ran %d times, want 1 (second invoke deduped)", calls)
	}
}

func TestInvokeFailureRecorded(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")
	reg.RegisterFunc("failing", func(ctx context.Context, args map[string]any) error {
		return boom
	})

	ledger := testLedger(t)
	inv := NewInvoker(reg, ledger)

	key := "failing@08:00/1787644800"
	if err := inv.Invoke(context.Background(), "failing", nil, key); !errors.Is(err, boom) {
		t.Fatalf("Invoke = %v, want boom", err)
	}

	// Failed runs do not deduplicate: the effect runs again.
	if err := inv.Invoke(context.Background(), "failing", nil, key); !errors.Is(err, boom) {
		t.Fatalf("retry Invoke = %v, want boom", err)
	}

	runs, err := ledger.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	for _, r := range runs {
		if !r.Failed() || r.Error != "boom" {
			t.Errorf("run = %+v, want failed with boom", r)
		}
	}
}

func TestRegistryDuplicate(t *testing.T) {
	reg := NewRegistry()
	fn := func(ctx context.Context, args map[string]any) error { return nil }
	if err := reg.RegisterFunc("x", fn); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := reg.RegisterFunc("x", fn); err == nil {
		t.Error("duplicate register succeeded")
	}
}
