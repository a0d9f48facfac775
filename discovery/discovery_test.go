package discovery

import (
	"testing"

	"github.com/toolgate/toolgate/event"
	"github.com/toolgate/toolgate/protocol"
)

func tool(name, desc string, categories, capabilities []string) protocol.Tool {
	return protocol.Tool{Name: name, Description: desc, Categories: categories, Capabilities: capabilities}
}

func TestDiscoverEmptyQueryReturnsEmpty(t *testing.T) {
	tools := []protocol.Tool{tool("files/read", "read a file", nil, nil)}
	if got := Discover(tools, "   ", 10); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestDiscoverNonPositiveLimitReturnsEmpty(t *testing.T) {
	tools := []protocol.Tool{tool("files/read", "read a file", nil, nil)}
	if got := Discover(tools, "read", 0); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestDiscoverExactNameOutranksSubstring(t *testing.T) {
	tools := []protocol.Tool{
		tool("read", "unrelated", nil, nil),
		tool("files/read-all", "reads everything", nil, nil),
	}
	got := Discover(tools, "read", 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %v", got)
	}
	if got[0].Tool.Name != "read" {
		t.Fatalf("expected exact name match ranked first, got %v", got[0])
	}
}

func TestDiscoverScoresDescriptionAndCategory(t *testing.T) {
	tools := []protocol.Tool{
		tool("a", "fetches weather data", []string{"weather"}, nil),
		tool("b", "unrelated tool", []string{"other"}, nil),
	}
	got := Discover(tools, "weather", 10)
	if len(got) != 1 || got[0].Tool.Name != "a" {
		t.Fatalf("expected only weather-related tool matched, got %v", got)
	}
	if got[0].Score != scoreDescSubstring+scoreCategorySubstr {
		t.Fatalf("expected description+category score, got %d", got[0].Score)
	}
}

func TestDiscoverTruncatesToLimitStably(t *testing.T) {
	tools := []protocol.Tool{
		tool("a", "match", nil, nil),
		tool("b", "match", nil, nil),
		tool("c", "match", nil, nil),
	}
	got := Discover(tools, "match", 2)
	if len(got) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(got))
	}
	if got[0].Tool.Name != "a" || got[1].Tool.Name != "b" {
		t.Fatalf("expected stable order on equal scores, got %v", got)
	}
}

func TestEstimateTokensIsAtLeastOne(t *testing.T) {
	if EstimateTokens(protocol.Tool{}) < 1 {
		t.Fatalf("expected minimum estimate of 1")
	}
}

func TestProvisionNonPositiveBudgetReturnsEmpty(t *testing.T) {
	tools := []protocol.Tool{tool("a", "x", nil, nil)}
	if got := Provision(tools, 0); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestProvisionSkipsOversizedButFillsLeftoverBudget(t *testing.T) {
	big := tool("big", stringOfLen(400), nil, nil)
	small := tool("small", "x", nil, nil)

	got := Provision([]protocol.Tool{big, small}, EstimateTokens(small))
	if len(got) != 1 || got[0].Name != "small" {
		t.Fatalf("expected oversized tool skipped and small one included, got %v", got)
	}
}

func TestProvisionPreservesOrderAndRespectsBudget(t *testing.T) {
	a := tool("a", "x", nil, nil)
	b := tool("b", "y", nil, nil)
	budget := EstimateTokens(a)

	got := Provision([]protocol.Tool{a, b}, budget)
	if len(got) != 1 || got[0].Name != "a" {
		t.Fatalf("expected only first tool fits budget, got %v", got)
	}
}

func TestGatingServiceProvisionEmitsMetrics(t *testing.T) {
	bus := event.NewBus()
	var captured event.Event
	bus.Subscribe(event.KindGatingMetrics, func(ev event.Event) {
		captured = ev
	})

	catalogue := []protocol.Tool{
		tool("weather/forecast", "get the weather forecast", nil, nil),
		tool("weather/alerts", "get weather alerts", nil, nil),
	}
	svc := NewGatingService(func() []protocol.Tool { return catalogue }, bus)

	got := svc.Provision("weather", 10000)
	if len(got) != 2 {
		t.Fatalf("expected both tools provisioned, got %v", got)
	}
	if captured.Data["toolsDiscovered"] != 2 {
		t.Fatalf("expected metrics event with toolsDiscovered=2, got %v", captured.Data)
	}
}

func stringOfLen(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
