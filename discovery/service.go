package discovery

import (
	"github.com/toolgate/toolgate/event"
	"github.com/toolgate/toolgate/protocol"
)

// GatingService composes Discover and Provision against the full catalogue
// and emits a gating.metrics event after each provisioning pass, per
// spec.md §4.5.
type GatingService struct {
	Catalogue func() []protocol.Tool
	Bus       *event.Bus
}

// NewGatingService constructs a GatingService. bus may be nil, in which
// case metrics are simply not published.
func NewGatingService(catalogue func() []protocol.Tool, bus *event.Bus) *GatingService {
	return &GatingService{Catalogue: catalogue, Bus: bus}
}

// Discover scores the full catalogue against query and returns the
// top-scoring limit tools, for the discover_tools built-in tool.
func (s *GatingService) Discover(query string, limit int) []Scored {
	return Discover(s.Catalogue(), query, limit)
}

// Provision implements GatingService.provision(query, maxTokens) =
// provision(discover(query, limit=∞), maxTokens).
func (s *GatingService) Provision(query string, maxTokens int) []protocol.Tool {
	tools := s.Catalogue()
	discovered := Discover(tools, query, len(tools)+1)

	ranked := make([]protocol.Tool, len(discovered))
	for i, d := range discovered {
		ranked[i] = d.Tool
	}

	provisioned := Provision(ranked, maxTokens)

	tokensUsed := 0
	for _, t := range provisioned {
		tokensUsed += EstimateTokens(t)
	}

	if s.Bus != nil {
		s.Bus.Publish(event.New(event.KindGatingMetrics, map[string]interface{}{
			"toolsDiscovered":  len(discovered),
			"toolsProvisioned": len(provisioned),
			"tokensBudgeted":   maxTokens,
			"tokensUsed":       tokensUsed,
		}))
	}

	return provisioned
}
