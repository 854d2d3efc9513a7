package provider

import (
	"context"
	"errors"

	"stratex/internal/pkg/circuit"
)

// Guarded 用熔断器包装补全服务。调用方主动取消不计入失败。
type Guarded struct {
	Next    Completer
	Breaker *circuit.Breaker
}

func NewGuarded(next Completer, b *circuit.Breaker) *Guarded {
	return &Guarded{Next: next, Breaker: b}
}

func (g *Guarded) ID() string { return g.Next.ID() }

func (g *Guarded) Complete(ctx context.Context, payload ChatPayload) (string, error) {
	if g.Breaker == nil {
		return g.Next.Complete(ctx, payload)
	}
	var out string
	err := g.Breaker.Do(func() error {
		var err error
		out, err = g.Next.Complete(ctx, payload)
		return err
	}, func(err error) bool {
		return errors.Is(err, context.Canceled)
	})
	return out, err
}
