package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{
		0:        DefaultLimit,
		-3:       DefaultLimit,
		10:       10,
		MaxLimit: MaxLimit,
		1000:     MaxLimit,
	}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestParseLimit(t *testing.T) {
	if got, err := ParseLimit(""); err != nil || got != DefaultLimit {
		t.Fatalf("expected default limit, got %d err=%v", got, err)
	}
	if got, err := ParseLimit(" 25 "); err != nil || got != 25 {
		t.Fatalf("expected 25, got %d err=%v", got, err)
	}
	for _, raw := range []string{"0", "201", "abc", "-1"} {
		if _, err := ParseLimit(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
