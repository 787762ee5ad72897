// Package probe classifies a configured server program as alive or not by
// spawning it and running the two-step MCP handshake over its stdio.
//
// A deep probe completes the full handshake (initialize, then tools/list)
// and collects the server's tool names. A quick probe only checks that the
// executable resolves and that the initialize request is acknowledged,
// under a shorter ceiling.
//
// Every probe settles exactly once. Whichever terminal signal fires first
// (final ack, timeout, process exit, spawn failure) kills the child before
// the result is returned, so no probe leaks a running process.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/hosts"
)

// State is the probe handshake state machine.
type State int

const (
	NotStarted State = iota
	Spawned
	InitializeSent
	InitializeAcked
	CapabilitiesRequested
	CapabilitiesAcked
	TimedOut
	SpawnFailed
	ExitedPrematurely
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Spawned:
		return "spawned"
	case InitializeSent:
		return "initialize-sent"
	case InitializeAcked:
		return "initialize-acked"
	case CapabilitiesRequested:
		return "capabilities-requested"
	case CapabilitiesAcked:
		return "capabilities-acked"
	case TimedOut:
		return "timed-out"
	case SpawnFailed:
		return "spawn-failed"
	case ExitedPrematurely:
		return "exited-prematurely"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Default handshake ceilings for the two probe granularities.
const (
	DefaultDeepTimeout  = 10 * time.Second
	DefaultQuickTimeout = 3 * time.Second
)

// Options configures one probe run.
type Options struct {
	// Deep runs the full two-step handshake and collects tool names.
	// When false, the probe settles on the first initialize ack.
	Deep bool
	// Timeout overrides the granularity's default ceiling.
	Timeout time.Duration
	// ClientVersion is reported as the caller identity in the handshake.
	ClientVersion string
}

func (o Options) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	if o.Deep {
		return DefaultDeepTimeout
	}
	return DefaultQuickTimeout
}

// Result is the structured outcome of one probe. Probes never return
// errors: non-response is an expected, common condition.
type Result struct {
	Server   string
	State    State
	Alive    bool
	Latency  time.Duration
	ErrTag   string
	Tools    []string
	ExitCode int
}

// Run probes one server entry. The context only bounds the run from the
// outside (operator interrupt); the probe's own ceiling is opts.Timeout.
func Run(ctx context.Context, server string, entry hosts.ServerEntry, opts Options) Result {
	if _, err := exec.LookPath(entry.Command); err != nil {
		return Result{
			Server: server,
			State:  SpawnFailed,
			ErrTag: fmt.Sprintf("executable %q not found", entry.Command),
		}
	}

	cmd := exec.Command(entry.Command, entry.Args...)
	cmd.Env = append(os.Environ(), envList(entry.Env)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return Result{Server: server, State: SpawnFailed, ErrTag: "failed to open stdin pipe"}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{Server: server, State: SpawnFailed, ErrTag: "failed to open stdout pipe"}
	}

	if err := cmd.Start(); err != nil {
		return Result{
			Server: server,
			State:  SpawnFailed,
			ErrTag: fmt.Sprintf("failed to start: %v", err),
		}
	}
	start := time.Now()

	responses := make(chan response, 8)
	readerDone := make(chan struct{})
	go func() {
		readResponses(stdout, responses)
		close(readerDone)
	}()

	// Wait closes the stdout pipe, so it must not run until the reader
	// has drained it; otherwise a fast child's replies are discarded.
	exited := make(chan error, 1)
	go func() {
		<-readerDone
		exited <- cmd.Wait()
	}()

	// settle terminates the child (unless it already exited) and stamps
	// the single terminal result. Every return path goes through here.
	reaped := false
	settle := func(r Result) Result {
		_ = stdin.Close()
		if !reaped {
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
			select {
			case <-exited:
			case <-time.After(2 * time.Second):
			}
		}
		r.Server = server
		return r
	}

	// A write failure here means the child died before reading; the exit
	// branch below classifies that, so the error is not terminal by itself.
	_ = writeRequest(stdin, initializeID, methodInitialize, initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo:      clientInfo{Name: clientName, Version: opts.clientVersion()},
	})

	timer := time.NewTimer(opts.timeout())
	defer timer.Stop()

	ackedInit := false
	var earlyTools *response

	// handle advances the handshake on one response. Responses that do not
	// qualify (non-conforming ids, a tools answer before the initialize
	// ack) do not settle the probe.
	handle := func(resp response) (Result, bool) {
		switch {
		case resp.id() == initializeID && !ackedInit:
			ackedInit = true
			if !opts.Deep {
				return Result{
					State:   InitializeAcked,
					Alive:   true,
					Latency: time.Since(start),
				}, true
			}
			_ = writeRequest(stdin, toolsListID, methodToolsList, nil)
			if earlyTools != nil {
				return capabilitiesResult(earlyTools, start), true
			}

		case resp.id() == toolsListID:
			if !ackedInit {
				// A server may stream both replies before we issue
				// the second request; hold the answer until the
				// initialize ack arrives.
				held := resp
				earlyTools = &held
				return Result{}, false
			}
			return capabilitiesResult(&resp, start), true
		}
		return Result{}, false
	}

	for {
		select {
		case <-ctx.Done():
			return settle(Result{State: TimedOut, ErrTag: "probe canceled"})

		case <-timer.C:
			return settle(Result{
				State:  TimedOut,
				ErrTag: fmt.Sprintf("no qualifying response within %s", opts.timeout()),
			})

		case err := <-exited:
			reaped = true
			// A fast server can answer fully and exit before the reader
			// goroutine's sends are consumed here. Responses that arrived
			// before the exit still win: drain what is already queued and
			// only classify the exit as premature if nothing qualifies.
			if r, settled := drainResponses(responses, handle); settled {
				return settle(r)
			}
			return settle(Result{
				State:    ExitedPrematurely,
				ErrTag:   "process exited before completing handshake",
				ExitCode: exitCode(err),
			})

		case resp, ok := <-responses:
			if !ok {
				// stdout closed; wait for exit or timeout.
				responses = nil
				continue
			}
			if r, settled := handle(resp); settled {
				return settle(r)
			}
		}
	}
}

// drainResponses consumes responses still in flight after the child
// exited. The reader goroutine closes the channel once it hits EOF on
// the dead child's stdout; the grace ceiling only guards against a
// reader wedged mid-read.
func drainResponses(responses chan response, handle func(response) (Result, bool)) (Result, bool) {
	grace := time.After(100 * time.Millisecond)
	for responses != nil {
		select {
		case resp, ok := <-responses:
			if !ok {
				return Result{}, false
			}
			if r, settled := handle(resp); settled {
				return r, true
			}
		case <-grace:
			return Result{}, false
		}
	}
	return Result{}, false
}

func capabilitiesResult(resp *response, start time.Time) Result {
	var tools []string
	if resp.Error == nil {
		tools = toolNames(resp.Result)
	}
	return Result{
		State:   CapabilitiesAcked,
		Alive:   true,
		Latency: time.Since(start),
		Tools:   tools,
	}
}

func (o Options) clientVersion() string {
	if o.ClientVersion != "" {
		return o.ClientVersion
	}
	return "dev"
}

// readResponses pumps child stdout through the line buffer and forwards
// every JSON-RPC-shaped line. Non-JSON lines are dropped silently. The
// send is non-blocking so a chatty child cannot wedge this goroutine
// after the probe has settled.
func readResponses(r io.Reader, out chan<- response) {
	defer close(out)
	lb := &LineBuffer{}
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, line := range lb.Feed(buf[:n]) {
				var resp response
				if json.Unmarshal(line, &resp) != nil {
					continue
				}
				if resp.JSONRPC != jsonrpcVersion {
					continue
				}
				select {
				case out <- resp:
				default:
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func envList(env map[string]string) []string {
	var out []string
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
