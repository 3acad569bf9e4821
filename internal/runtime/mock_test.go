package runtime

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestMockRuntime_RecordsCalls(t *testing.T) {
	m := NewMockRuntime()
	ctx := context.Background()

	_ = m.Start(ctx, "fr1")
	pid, err := m.Leader(ctx, "fr1")
	if err != nil {
		t.Fatalf("Leader failed: %v", err)
	}
	if pid != 4242 {
		t.Errorf("pid = %d, want 4242", pid)
	}
	if _, err := m.Enter(ctx, pid, []string{"true"}); err != nil {
		t.Fatalf("Enter failed: %v", err)
	}

	want := []string{"Start", "Leader", "Enter"}
	if got := m.Methods(); !reflect.DeepEqual(got, want) {
		t.Errorf("Methods() = %v, want %v", got, want)
	}

	m.Reset()
	if len(m.GetCalls()) != 0 {
		t.Error("Reset should clear the call log")
	}
}

func TestMockRuntime_SetError(t *testing.T) {
	m := NewMockRuntime()
	boom := errors.New("boom")
	m.SetError("Stop", boom)

	if err := m.Stop(context.Background(), "fr1"); !errors.Is(err, boom) {
		t.Errorf("Stop error = %v, want %v", err, boom)
	}
	if err := m.Kill(context.Background(), "fr1"); err != nil {
		t.Errorf("Kill error = %v, want nil", err)
	}
}

func TestMockRuntime_OnCall(t *testing.T) {
	m := NewMockRuntime()
	var seen []string
	m.OnCall = func(method string) {
		// The call is already logged when the hook runs.
		seen = append(seen, method+":"+m.Methods()[len(m.Methods())-1])
	}

	_ = m.Start(context.Background(), "fr1")
	_ = m.Stop(context.Background(), "fr1")

	if want := []string{"Start:Start", "Stop:Stop"}; !reflect.DeepEqual(seen, want) {
		t.Errorf("hook saw %v, want %v", seen, want)
	}
}
