package main

import (
	"context"

	"github.com/toolgate/toolgate/loadbalancer"
	"github.com/toolgate/toolgate/protocol"
	"github.com/toolgate/toolgate/upstream"
)

// lbDispatcher adapts upstream.ClientManager into proxy.Dispatcher, routing
// every backend call through the Load Balancer's rate limiter and circuit
// breaker first, per spec.md §4.10.
type lbDispatcher struct {
	clients *upstream.ClientManager
	lb      *loadbalancer.LoadBalancer
}

func (d *lbDispatcher) ExecuteTool(ctx context.Context, backend, toolName string, input map[string]interface{}) (*protocol.ToolCallResult, error) {
	out, err := d.lb.Admit(ctx, "", backend, toolName, func(ctx context.Context) (interface{}, error) {
		return d.clients.ExecuteTool(ctx, backend, toolName, input)
	})
	if err != nil {
		return nil, err
	}
	result, _ := out.(*protocol.ToolCallResult)
	return result, nil
}
