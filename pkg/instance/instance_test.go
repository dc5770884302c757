package instance

import "testing"

func TestIDPrefersEnv(t *testing.T) {
	t.Setenv("STOREFRONT_INSTANCE_ID", "cron-a")
	if got := ID(); got != "cron-a" {
		t.Fatalf("expected env id, got %q", got)
	}
}

func TestIDFallsBack(t *testing.T) {
	t.Setenv("STOREFRONT_INSTANCE_ID", "")
	if got := ID(); got == "" {
		t.Fatal("expected a non-empty id")
	}
}
