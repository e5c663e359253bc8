package secret

import (
	"errors"
	"strings"
	"testing"
)

func TestExpandEnvStrict_MissingVarErrors(t *testing.T) {
	t.Setenv("PRESENT", "ok")

	_, err := ExpandEnvStrict("a=${PRESENT} b=${MISSING} c=${MISSING}")
	if !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("expected ErrMissingEnv, got: %v", err)
	}
	if strings.Count(err.Error(), "MISSING") != 1 {
		t.Fatalf("expected missing var named once, got: %v", err)
	}
}

func TestExpandEnvStrict_DollarEscape(t *testing.T) {
	t.Setenv("X", "y")

	out, err := ExpandEnvStrict("$$${X}")
	if err != nil {
		t.Fatalf("ExpandEnvStrict() error = %v", err)
	}
	if out != "$y" {
		t.Fatalf("ExpandEnvStrict() = %q, want %q", out, "$y")
	}
}
