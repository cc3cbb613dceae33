package environment_test

import (
	"testing"
	"time"

	"github.com/bdobrica/Hisho/common/environment"
)

func TestStringOr(t *testing.T) {
	t.Setenv("HISHO_TEST_STRING", "hello")
	if got := environment.StringOr("HISHO_TEST_STRING", "default"); got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
	if got := environment.StringOr("HISHO_TEST_STRING_MISSING", "default"); got != "default" {
		t.Errorf("expected %q, got %q", "default", got)
	}
}

func TestOverrideString_KeepsExistingWhenUnset(t *testing.T) {
	v := "from-yaml"
	environment.OverrideString(&v, "HISHO_TEST_UNSET")
	if v != "from-yaml" {
		t.Errorf("expected value to be kept, got %q", v)
	}

	t.Setenv("HISHO_TEST_SET", "  from-env  ")
	environment.OverrideString(&v, "HISHO_TEST_SET")
	if v != "from-env" {
		t.Errorf("expected trimmed override, got %q", v)
	}
}

func TestOverrideBool(t *testing.T) {
	b := false
	t.Setenv("HISHO_TEST_BOOL", "true")
	if err := environment.OverrideBool(&b, "HISHO_TEST_BOOL"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b {
		t.Error("expected true")
	}

	t.Setenv("HISHO_TEST_BOOL", "maybe")
	if err := environment.OverrideBool(&b, "HISHO_TEST_BOOL"); err == nil {
		t.Error("expected error for malformed boolean")
	}
	if !b {
		t.Error("malformed value must not change destination")
	}
}

func TestOverrideInt(t *testing.T) {
	n := 16
	t.Setenv("HISHO_TEST_INT", "4")
	if err := environment.OverrideInt(&n, "HISHO_TEST_INT"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4, got %d", n)
	}

	t.Setenv("HISHO_TEST_INT", "four")
	if err := environment.OverrideInt(&n, "HISHO_TEST_INT"); err == nil {
		t.Error("expected error for malformed integer")
	}
}

func TestOverrideDuration(t *testing.T) {
	d := time.Hour
	t.Setenv("HISHO_TEST_DURATION", "90s")
	if err := environment.OverrideDuration(&d, "HISHO_TEST_DURATION"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 90*time.Second {
		t.Errorf("expected 90s, got %v", d)
	}

	t.Setenv("HISHO_TEST_DURATION", "soon")
	if err := environment.OverrideDuration(&d, "HISHO_TEST_DURATION"); err == nil {
		t.Error("expected error for malformed duration")
	}
}

func TestOverrideStringSlice(t *testing.T) {
	rooms := []string{"!default:example.com"}
	t.Setenv("HISHO_TEST_SLICE", " !a:example.com , ,!b:example.com ")
	environment.OverrideStringSlice(&rooms, "HISHO_TEST_SLICE")
	if len(rooms) != 2 || rooms[0] != "!a:example.com" || rooms[1] != "!b:example.com" {
		t.Errorf("unexpected slice %v", rooms)
	}

	t.Setenv("HISHO_TEST_SLICE", " , ")
	environment.OverrideStringSlice(&rooms, "HISHO_TEST_SLICE")
	if len(rooms) != 2 {
		t.Errorf("empty list must not override, got %v", rooms)
	}
}
