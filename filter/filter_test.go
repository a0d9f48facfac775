package filter

import (
	"testing"

	"github.com/toolgate/toolgate/protocol"
)

func tools(names ...string) ToolSet {
	out := make(ToolSet, len(names))
	for i, n := range names {
		out[i] = protocol.Tool{Name: n}
	}
	return out
}

func names(tools ToolSet) []string {
	out := make([]string, len(tools))
	for i, t := range tools {
		out[i] = t.Name
	}
	return out
}

func intPtr(n int) *int { return &n }

func TestTaskTypePassesThroughWithoutMatch(t *testing.T) {
	f := &TaskType{Enabled: true, Map: map[string][]string{"coding": {"files/read"}}}

	in := tools("files/read", "net/fetch")
	if got := f.Apply(in, Context{}); len(got) != 2 {
		t.Fatalf("expected pass-through with empty TaskType, got %v", names(got))
	}
	if got := f.Apply(in, Context{TaskType: "unknown"}); len(got) != 2 {
		t.Fatalf("expected pass-through with unmapped TaskType, got %v", names(got))
	}
}

func TestTaskTypeIntersectsPreservingOrder(t *testing.T) {
	f := &TaskType{Enabled: true, Map: map[string][]string{
		"coding": {"net/fetch", "files/read"},
	}}
	in := tools("files/read", "net/fetch", "files/write")
	got := f.Apply(in, Context{TaskType: "coding"})
	if want := []string{"files/read", "net/fetch"}; !equalSlices(names(got), want) {
		t.Fatalf("got %v, want %v", names(got), want)
	}
}

func TestResourceTruncatesToMax(t *testing.T) {
	f := &Resource{Enabled: true, MaxTools: intPtr(2)}
	in := tools("a", "b", "c")
	got := f.Apply(in, Context{})
	if want := []string{"a", "b"}; !equalSlices(names(got), want) {
		t.Fatalf("got %v, want %v", names(got), want)
	}
}

func TestResourceZeroOrNegativeDropsAll(t *testing.T) {
	f := &Resource{Enabled: true, MaxTools: intPtr(0)}
	if got := f.Apply(tools("a", "b"), Context{}); len(got) != 0 {
		t.Fatalf("expected empty set for MaxTools=0, got %v", names(got))
	}

	f = &Resource{Enabled: true, MaxTools: intPtr(-1)}
	if got := f.Apply(tools("a", "b"), Context{}); len(got) != 0 {
		t.Fatalf("expected empty set for negative MaxTools, got %v", names(got))
	}
}

func TestResourceAbsentMeansNoLimit(t *testing.T) {
	f := &Resource{Enabled: true, MaxTools: nil}
	in := tools("a", "b", "c")
	got := f.Apply(in, Context{})
	if len(got) != 3 {
		t.Fatalf("expected no truncation when MaxTools is absent, got %v", names(got))
	}
}

func TestSecurityRemovesBlockedNames(t *testing.T) {
	f := &Security{Enabled: true, Blocked: []string{"net/fetch"}}
	in := tools("files/read", "net/fetch")
	got := f.Apply(in, Context{})
	if want := []string{"files/read"}; !equalSlices(names(got), want) {
		t.Fatalf("got %v, want %v", names(got), want)
	}
}

func TestChainOrderAndIdempotence(t *testing.T) {
	taskType := &TaskType{Enabled: true, Map: map[string][]string{
		"coding": {"files/read", "files/write", "net/fetch"},
	}}
	resource := &Resource{Enabled: true, MaxTools: intPtr(2)}
	security := &Security{Enabled: true, Blocked: []string{"files/write"}}

	chain := NewChain(taskType, resource, security)
	in := tools("files/read", "files/write", "net/fetch")
	ctx := Context{TaskType: "coding"}

	first := chain.Apply(in, ctx)
	second := chain.Apply(first, ctx)

	if !equalSlices(names(first), names(second)) {
		t.Fatalf("chain not idempotent: first=%v second=%v", names(first), names(second))
	}
	if want := []string{"files/read"}; !equalSlices(names(first), want) {
		t.Fatalf("got %v, want %v", names(first), want)
	}
}

func TestChainSkipsNilFilters(t *testing.T) {
	chain := NewChain(nil, nil, nil)
	in := tools("a", "b")
	got := chain.Apply(in, Context{})
	if !equalSlices(names(got), names(in)) {
		t.Fatalf("expected identity chain, got %v", names(got))
	}
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
