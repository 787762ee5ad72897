package probe

import (
	"context"
	"testing"
	"time"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/hosts"
)

// shServer builds an entry running a shell script as a fake MCP server.
func shServer(script string) hosts.ServerEntry {
	return hosts.ServerEntry{Command: "sh", Args: []string{"-c", script}}
}

const (
	initLine  = `{"jsonrpc":"2.0","id":1,"result":{}}`
	toolsLine = `{"jsonrpc":"2.0","id":2,"result":{"tools":[{"name":"echo"}]}}`
)

func TestDeepProbeSuccess(t *testing.T) {
	script := `printf '%s\n%s\n' '` + initLine + `' '` + toolsLine + `'; sleep 2`
	result := Run(context.Background(), "fake", shServer(script), Options{Deep: true, Timeout: 5 * time.Second})

	if result.State != CapabilitiesAcked {
		t.Fatalf("State = %s, want capabilities-acked (%+v)", result.State, result)
	}
	if !result.Alive {
		t.Error("Expected alive")
	}
	if len(result.Tools) != 1 || result.Tools[0] != "echo" {
		t.Errorf("Tools = %v, want [echo]", result.Tools)
	}
	if result.Latency <= 0 {
		t.Error("Expected positive latency")
	}
}

func TestQuickProbeStopsAtInitializeAck(t *testing.T) {
	script := `printf '%s\n' '` + initLine + `'; sleep 2`
	result := Run(context.Background(), "fake", shServer(script), Options{Timeout: 5 * time.Second})

	if result.State != InitializeAcked {
		t.Fatalf("State = %s, want initialize-acked (%+v)", result.State, result)
	}
	if !result.Alive {
		t.Error("Expected alive")
	}
	if result.Tools != nil {
		t.Errorf("Quick probe should not collect tools, got %v", result.Tools)
	}
}

func TestProbeTimeout(t *testing.T) {
	start := time.Now()
	result := Run(context.Background(), "silent", shServer("sleep 5"), Options{Timeout: 50 * time.Millisecond})
	elapsed := time.Since(start)

	if result.State != TimedOut {
		t.Fatalf("State = %s, want timed-out (%+v)", result.State, result)
	}
	if result.Alive {
		t.Error("Timed-out probe reported alive")
	}
	// The ceiling was 50ms; settling includes killing and reaping the
	// child, which must not take anywhere near the script's 5s sleep.
	if elapsed > 1*time.Second {
		t.Errorf("Probe took %v to settle; child was not killed", elapsed)
	}
}

func TestProbeSpawnFailed(t *testing.T) {
	entry := hosts.ServerEntry{Command: "mcpman-test-no-such-binary"}
	result := Run(context.Background(), "missing", entry, Options{Deep: true})

	if result.State != SpawnFailed {
		t.Fatalf("State = %s, want spawn-failed", result.State)
	}
	if result.ErrTag == "" {
		t.Error("Expected error tag on spawn failure")
	}
}

func TestProbeExitedPrematurely(t *testing.T) {
	result := Run(context.Background(), "flaky", shServer("exit 7"), Options{Timeout: 5 * time.Second})

	if result.State != ExitedPrematurely {
		t.Fatalf("State = %s, want exited-prematurely (%+v)", result.State, result)
	}
	if result.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", result.ExitCode)
	}
}

func TestProbeIgnoresNonConformingLines(t *testing.T) {
	script := `printf '%s\n%s\n%s\n%s\n' 'starting up...' '{"not":"rpc"}' '` + initLine + `' '` + toolsLine + `'; sleep 2`
	result := Run(context.Background(), "noisy", shServer(script), Options{Deep: true, Timeout: 5 * time.Second})

	if result.State != CapabilitiesAcked {
		t.Fatalf("State = %s, want capabilities-acked (%+v)", result.State, result)
	}
	if len(result.Tools) != 1 || result.Tools[0] != "echo" {
		t.Errorf("Tools = %v, want [echo]", result.Tools)
	}
}

func TestDeepProbeServerAnswersThenExitsImmediately(t *testing.T) {
	// No trailing sleep: the child exits the instant both replies are
	// written, so the exit signal and the queued responses race. The
	// responses arrived first and must win every time.
	script := `printf '%s\n%s\n' '` + initLine + `' '` + toolsLine + `'`
	for i := 0; i < 20; i++ {
		result := Run(context.Background(), "fast", shServer(script), Options{Deep: true, Timeout: 5 * time.Second})
		if result.State != CapabilitiesAcked {
			t.Fatalf("Run %d: State = %s, want capabilities-acked (%+v)", i, result.State, result)
		}
		if len(result.Tools) != 1 || result.Tools[0] != "echo" {
			t.Fatalf("Run %d: Tools = %v, want [echo]", i, result.Tools)
		}
	}
}

func TestQuickProbeServerAnswersThenExitsImmediately(t *testing.T) {
	script := `printf '%s\n' '` + initLine + `'`
	for i := 0; i < 20; i++ {
		result := Run(context.Background(), "fast", shServer(script), Options{Timeout: 5 * time.Second})
		if result.State != InitializeAcked {
			t.Fatalf("Run %d: State = %s, want initialize-acked (%+v)", i, result.State, result)
		}
	}
}

func TestProbeSettlesOnceWhenTimeoutRacesExit(t *testing.T) {
	// The script outlives the ceiling but exits well before the test
	// would; whichever signal fires, Run must return exactly one result
	// and must not panic on the loser firing afterwards.
	script := `sleep 0.2; exit 0`
	result := Run(context.Background(), "racer", shServer(script), Options{Timeout: 150 * time.Millisecond})

	if result.State != TimedOut && result.State != ExitedPrematurely {
		t.Fatalf("State = %s, want timed-out or exited-prematurely", result.State)
	}
	// Give the loser signal time to fire; a double settle would panic in
	// Run before this point.
	time.Sleep(200 * time.Millisecond)
}

func TestProbeContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result := Run(ctx, "canceled", shServer("sleep 5"), Options{Timeout: 10 * time.Second})
	if time.Since(start) > 1*time.Second {
		t.Error("Cancel did not settle the probe promptly")
	}
	if result.State != TimedOut {
		t.Errorf("State = %s, want timed-out on cancel", result.State)
	}
}
