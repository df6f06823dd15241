package validator

import "testing"

func TestStateCodeRule(t *testing.T) {
	val := New()
	if err := val.Var("TX", "state_code"); err != nil {
		t.Fatalf("expected TX to be valid: %v", err)
	}
	for _, bad := range []string{"tx", "Texas", "T", ""} {
		if err := val.Var(bad, "state_code"); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
