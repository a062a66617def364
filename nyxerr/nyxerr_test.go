package nyxerr

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorMessageIncludesKind(t *testing.T) {
	err := New(Lexical, "unexpected byte %q", "$")
	if got, want := err.Error(), `LEXICAL: unexpected byte "$"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWithCaretRendersLineAndCaret(t *testing.T) {
	err := New(Parse, "unexpected token").WithCaret("main.nyx", 3, 5, "frame { bad")
	rendered := err.Error()
	if !strings.Contains(rendered, "frame { bad") {
		t.Error("expected rendered error to include the source line")
	}
	if !strings.Contains(rendered, "main.nyx:3") {
		t.Error("expected rendered error to include file:line")
	}
	if !strings.Contains(rendered, "^") {
		t.Error("expected rendered error to include a caret")
	}
}

func TestWrapPreservesCauseAndUnwraps(t *testing.T) {
	cause := errors.New("permission denied")
	err := Wrap(IO, cause, "failed to open %q", "a.nyx")
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
	if !strings.Contains(err.Error(), "permission denied") {
		t.Error("expected rendered error to mention the cause")
	}
}

func TestWithContextAttachesMetadata(t *testing.T) {
	err := New(Dependency, "not found").WithContext("didYouMean", "demo.frame")
	if err.Context["didYouMean"] != "demo.frame" {
		t.Errorf("Context[didYouMean] = %v, want demo.frame", err.Context["didYouMean"])
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := New(Resolution, "boom")
	if !Is(err, Resolution) {
		t.Error("Is() should match the error's own kind")
	}
	if Is(err, IO) {
		t.Error("Is() should not match a different kind")
	}
	if Is(errors.New("plain"), Resolution) {
		t.Error("Is() should reject a non-*Error")
	}
}
