package logger_test

import (
	"strings"
	"testing"

	"github.com/jetsetilly/a2lsync/logger"
)

func TestLogger(t *testing.T) {
	logger.Clear()

	var w strings.Builder
	logger.Write(&w)
	if w.String() != "" {
		t.Fatalf("expected empty log, got %q", w.String())
	}

	logger.Log("test", "this is a test")
	w.Reset()
	logger.Write(&w)
	if w.String() != "test: this is a test\n" {
		t.Fatalf("unexpected log contents: %q", w.String())
	}

	logger.Log("test2", "this is another test")
	w.Reset()
	logger.Write(&w)
	if w.String() != "test: this is a test\ntest2: this is another test\n" {
		t.Fatalf("unexpected log contents: %q", w.String())
	}

	w.Reset()
	logger.Tail(&w, 100)
	if w.String() != "test: this is a test\ntest2: this is another test\n" {
		t.Fatalf("tail over-request should just return everything, got %q", w.String())
	}

	w.Reset()
	logger.Tail(&w, 1)
	if w.String() != "test2: this is another test\n" {
		t.Fatalf("unexpected tail: %q", w.String())
	}

	w.Reset()
	logger.Tail(&w, 0)
	if w.String() != "" {
		t.Fatalf("expected no entries, got %q", w.String())
	}
}

func TestCountByTag(t *testing.T) {
	logger.Clear()
	logger.Log("resolve", "a")
	logger.Log("resolve", "b")
	logger.Log("typedef", "c")

	counts := logger.CountByTag()
	if counts["resolve"] != 2 {
		t.Fatalf("expected 2 resolve entries, got %d", counts["resolve"])
	}
	if counts["typedef"] != 1 {
		t.Fatalf("expected 1 typedef entry, got %d", counts["typedef"])
	}
}
