package errdef

import (
	"errors"
	"io/fs"
	"testing"
)

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(CodeFilesystem, fs.ErrNotExist, "open %s", "vars.json")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected wrapped cause to be reachable")
	}
	if got := err.Error(); got != "open vars.json: file does not exist" {
		t.Fatalf("unexpected message %q", got)
	}
	if CodeOf(err) != CodeFilesystem {
		t.Fatalf("expected filesystem code, got %q", CodeOf(err))
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(CodeHTTP, nil, "noop"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if got := CodeOf(errors.New("boom")); got != CodeUnknown {
		t.Fatalf("expected unknown code, got %q", got)
	}
	if got := Message(New(CodeParse, "bad %d", 1)); got != "bad 1" {
		t.Fatalf("unexpected message %q", got)
	}
	if Message(nil) != "" {
		t.Fatalf("expected empty message for nil")
	}
}
