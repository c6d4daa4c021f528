package rulegen

import (
	"context"

	"github.com/crmkit/segmint/internal/rules"
)

// StaticGenerator answers every prompt with the same tree. It backs local
// development and tests where no model is reachable.
type StaticGenerator struct {
	tree rules.Group
}

// NewStaticGenerator returns a generator that always yields tree.
func NewStaticGenerator(tree rules.Group) *StaticGenerator {
	return &StaticGenerator{tree: rules.Clone(tree)}
}

// Name implements Generator.
func (g *StaticGenerator) Name() string { return ProviderStatic }

// Generate implements Generator.
func (g *StaticGenerator) Generate(ctx context.Context, _ string) (rules.Group, error) {
	if err := ctx.Err(); err != nil {
		return rules.Group{}, err
	}
	return rules.Clone(g.tree), nil
}
