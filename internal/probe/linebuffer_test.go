package probe

import "testing"

func TestLineBufferSplitsCompleteLines(t *testing.T) {
	lb := &LineBuffer{}
	lines := lb.Feed([]byte("one\ntwo\nthree"))

	if len(lines) != 2 {
		t.Fatalf("Expected 2 complete lines, got %d", len(lines))
	}
	if string(lines[0]) != "one" || string(lines[1]) != "two" {
		t.Errorf("Lines = %q, %q", lines[0], lines[1])
	}
	if lb.Pending() != len("three") {
		t.Errorf("Pending = %d, want %d", lb.Pending(), len("three"))
	}
}

func TestLineBufferDefersIncompleteLine(t *testing.T) {
	lb := &LineBuffer{}

	if lines := lb.Feed([]byte(`{"jsonrpc":"2.0",`)); len(lines) != 0 {
		t.Fatalf("Incomplete line yielded %d lines", len(lines))
	}
	lines := lb.Feed([]byte("\"id\":1}\n"))
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line after completion, got %d", len(lines))
	}
	if string(lines[0]) != `{"jsonrpc":"2.0","id":1}` {
		t.Errorf("Reassembled line = %q", lines[0])
	}
	if lb.Pending() != 0 {
		t.Errorf("Pending = %d after complete line", lb.Pending())
	}
}

func TestLineBufferStripsCarriageReturn(t *testing.T) {
	lb := &LineBuffer{}
	lines := lb.Feed([]byte("hello\r\n"))

	if len(lines) != 1 || string(lines[0]) != "hello" {
		t.Errorf("CRLF line = %q", lines[0])
	}
}

func TestLineBufferManyLinesOneChunk(t *testing.T) {
	lb := &LineBuffer{}
	lines := lb.Feed([]byte("a\nb\nc\n"))

	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}
	if lb.Pending() != 0 {
		t.Errorf("Pending = %d", lb.Pending())
	}
}

func TestLineBufferEmptyLines(t *testing.T) {
	lb := &LineBuffer{}
	lines := lb.Feed([]byte("\n\nx\n"))

	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines including empties, got %d", len(lines))
	}
	if string(lines[2]) != "x" {
		t.Errorf("Third line = %q", lines[2])
	}
}
