package miner

import (
	"context"
	"reflect"
	"testing"

	"github.com/rigmon/rigmon/internal/jsonpath"
)

func TestFormatUptime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		secs int64
		want string
	}{
		{0, "0:00:00"},
		{5, "0:00:05"},
		{5000, "1:23:20"},
		{86399, "23:59:59"},
		{86400, "1 day, 0:00:00"},
		{86405, "1 day, 0:00:05"},
		{2*86400 + 3*3600 + 4*60 + 5, "2 days, 3:04:05"},
	}
	for _, tt := range tests {
		if got := FormatUptime(tt.secs); got != tt.want {
			t.Errorf("FormatUptime(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestTypedAccessors(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(t, ts, nil)
	ctx := context.Background()

	if err := c.RefreshAll(ctx); err != nil {
		t.Fatal(err)
	}

	if up, ok := c.Uptime(ctx); !ok || up != 5000 {
		t.Fatalf("Uptime = %d, %v", up, ok)
	}
	if s, ok := c.UptimeReadable(ctx); !ok || s != "1:23:20" {
		t.Fatalf("UptimeReadable = %q, %v", s, ok)
	}
	if paused, ok := c.Paused(ctx); !ok || paused {
		t.Fatalf("Paused = %v, %v", paused, ok)
	}
	if id, ok := c.WorkerID(ctx); !ok || id != "rig-1" {
		t.Fatalf("WorkerID = %q, %v", id, ok)
	}
	if hr, ok := c.Hashrate10s(ctx); !ok || hr != 512.5 {
		t.Fatalf("Hashrate10s = %v, %v", hr, ok)
	}
	if hr, ok := c.HighestHashrate(ctx); !ok || hr != 530.0 {
		t.Fatalf("HighestHashrate = %v, %v", hr, ok)
	}
}

func TestEnabledBackendsSkipsAbsentSlots(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(t, ts, nil)
	ctx := context.Background()

	if err := c.Refresh(ctx, EndpointBackends); err != nil {
		t.Fatal(err)
	}

	// CPU-only build: one element, indices 1 and 2 absent.
	got := c.EnabledBackends(ctx)
	if !reflect.DeepEqual(got, []string{"cpu"}) {
		t.Fatalf("EnabledBackends = %v", got)
	}

	// Index 1 misses cleanly rather than erroring.
	if _, ok := c.Lookup(ctx, EndpointBackends, jsonpath.Parse("1.type")); ok {
		t.Fatal("expected miss for absent opencl backend")
	}
}

func TestEnabledBackendsMultiBackend(t *testing.T) {
	ts := newTestServer(t)
	ts.bodies["/2/backends"] = `[
		{"type": "cpu", "enabled": true},
		{"type": "opencl", "enabled": false},
		{"type": "cuda", "enabled": true}
	]`
	c := newTestClient(t, ts, nil)
	ctx := context.Background()

	if err := c.Refresh(ctx, EndpointBackends); err != nil {
		t.Fatal(err)
	}
	got := c.EnabledBackends(ctx)
	if !reflect.DeepEqual(got, []string{"cpu", "cuda"}) {
		t.Fatalf("EnabledBackends = %v", got)
	}
}

func TestFieldTable(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(t, ts, nil)
	ctx := context.Background()

	if err := c.RefreshAll(ctx); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		field string
		want  any
	}{
		{"sum_uptime", float64(5000)},
		{"sum_free_memory", float64(1024)},
		{"sum_hashrate_10s", 512.5},
		{"be_cpu_type", "cpu"},
		{"be_cpu_hashrate_1m", float64(99.0)},
		{"conf_autosave", true},
		{"conf_http_port", float64(37841)},
	}
	for _, tt := range tests {
		got, ok := c.Field(ctx, tt.field)
		if !ok {
			t.Errorf("Field(%q): miss", tt.field)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Field(%q) = %v, want %v", tt.field, got, tt.want)
		}
	}

	if _, ok := c.Field(ctx, "no_such_field"); ok {
		t.Fatal("expected miss for unknown field name")
	}
	// Absent GPU slot on a CPU-only build.
	if _, ok := c.Field(ctx, "be_opencl_type"); ok {
		t.Fatal("expected miss for absent backend field")
	}
}

func TestFieldNamesSortedAndParseable(t *testing.T) {
	t.Parallel()

	names := FieldNames()
	if len(names) == 0 {
		t.Fatal("empty field table")
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names not sorted: %q >= %q", names[i-1], names[i])
		}
	}
	// Every selector in the table must round-trip through the parser.
	for name, ref := range fieldPaths {
		if got := jsonpath.Parse(ref.selector).String(); got != ref.selector {
			t.Errorf("field %q: selector %q round-trips to %q", name, ref.selector, got)
		}
	}
}
