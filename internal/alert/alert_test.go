package alert

import (
	"testing"
	"time"
)

func TestRank_Order(t *testing.T) {
	t.Parallel()

	prev := -1
	for _, p := range Priorities() {
		r, ok := Rank(p)
		if !ok {
			t.Fatalf("Rank(%q) not recognized", p)
		}
		if r <= prev {
			t.Errorf("rank of %q = %d, want > %d", p, r, prev)
		}
		prev = r
	}
}

func TestRank_CaseInsensitive(t *testing.T) {
	t.Parallel()

	r1, ok1 := Rank("Critical")
	r2, ok2 := Rank("critical")
	if !ok1 || !ok2 || r1 != r2 {
		t.Errorf("Rank(Critical) = (%d,%v), Rank(critical) = (%d,%v)", r1, ok1, r2, ok2)
	}
}

func TestRank_Unknown(t *testing.T) {
	t.Parallel()

	if _, ok := Rank("catastrophic"); ok {
		t.Error("expected unknown priority to be unrecognized")
	}
}

func TestWeight_LinearScale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		priority string
		want     float64
	}{
		{"debug", 2},
		{"informational", 4},
		{"warning", 8},
		{"critical", 12},
		{"emergency", 16},
		{"bogus", 2},
	}
	for _, tt := range tests {
		if got := Weight(tt.priority); got != tt.want {
			t.Errorf("Weight(%q) = %v, want %v", tt.priority, got, tt.want)
		}
	}
}

func TestDecode_Valid(t *testing.T) {
	t.Parallel()

	ev, err := Decode([]byte(`{"rule":"Terminal shell in container","priority":"warning","output":"A shell was spawned","time":"2026-01-02T03:04:05Z","output_fields":{"container.id":"abc"}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.Rule != "Terminal shell in container" {
		t.Errorf("rule = %q", ev.Rule)
	}
	if ev.OutputFields["container.id"] != "abc" {
		t.Errorf("output_fields = %v", ev.OutputFields)
	}
}

func TestDecode_Invalid(t *testing.T) {
	t.Parallel()

	cases := []string{
		`not json`,
		`{"priority":"warning","output":"x"}`,
		`{"rule":"r","output":"x"}`,
		`{"rule":"r","priority":"warning"}`,
	}
	for _, body := range cases {
		if _, err := Decode([]byte(body)); err == nil {
			t.Errorf("Decode(%q): expected error", body)
		}
	}
}

func TestParseTime_ZoneAssumedUTC(t *testing.T) {
	t.Parallel()

	ts, ok := ParseTime("2026-01-02T03:04:05")
	if !ok {
		t.Fatal("expected naive timestamp to parse")
	}
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("ts = %v, want %v", ts, want)
	}
}

func TestParseTime_Malformed(t *testing.T) {
	t.Parallel()

	if _, ok := ParseTime("yesterday-ish"); ok {
		t.Error("expected malformed timestamp to fail")
	}
	if _, ok := ParseTime(""); ok {
		t.Error("expected empty timestamp to fail")
	}
}
