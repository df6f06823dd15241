package sanitize

import "testing"

func TestTextStripsEncodedTags(t *testing.T) {
	got := Text("  too far &lt;script&gt;alert(1)&lt;/script&gt;   <b>away</b> ")
	if got != "too far alert(1) away" {
		t.Fatalf("unexpected sanitized text %q", got)
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	if got := Truncate("héllo wörld", 5); got != "héllo" {
		t.Fatalf("expected héllo, got %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("expected unchanged text, got %q", got)
	}
}
