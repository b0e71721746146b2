package env

import "testing"

func TestGetFallsBackOnBlank(t *testing.T) {
	t.Setenv("MARKETPLACE_TEST_VALUE", "   ")
	if got := Get("MARKETPLACE_TEST_VALUE", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("MARKETPLACE_TEST_VALUE", " console ")
	if got := Get("MARKETPLACE_TEST_VALUE", "json"); got != "console" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("MARKETPLACE_TEST_FLAG", "true")
	if !Bool("MARKETPLACE_TEST_FLAG", false) {
		t.Fatalf("expected true")
	}
	t.Setenv("MARKETPLACE_TEST_FLAG", "nope")
	if Bool("MARKETPLACE_TEST_FLAG", false) {
		t.Fatalf("expected fallback on parse failure")
	}
}
