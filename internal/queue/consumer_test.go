package queue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("chdir back: %v", err)
		}
	})
}

func TestHandleMessageWritesLogLine(t *testing.T) {
	chdirTemp(t)

	body := []byte(`{"event":"plan.generated","run_id":"r1","user_id":7,"task_id":3,"summary":"1. outline\n2. draft","occurred_at":"2026-08-28T10:00:00Z"}`)
	if err := handleMessage(body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join("logs", "assistant.log"))
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	line := string(data)
	for _, want := range []string{"plan.generated", "run_id=r1", "user_id=7", "task_id=3"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %q: %s", want, line)
		}
	}
}

func TestHandleMessageNoTask(t *testing.T) {
	chdirTemp(t)

	body := []byte(`{"event":"suggestion.created","run_id":"r2","user_id":7,"summary":"take a break","occurred_at":"2026-08-28T10:00:00Z"}`)
	if err := handleMessage(body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join("logs", "assistant.log"))
	if !strings.Contains(string(data), "task_id=-") {
		t.Errorf("nil task id should render as -, got: %s", data)
	}
}

func TestHandleMessageMalformed(t *testing.T) {
	chdirTemp(t)

	if err := handleMessage([]byte("not json")); err == nil {
		t.Fatal("malformed payload must be rejected")
	}
}
