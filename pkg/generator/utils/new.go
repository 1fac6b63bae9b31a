// Package generatorutils is the generator utility package
package generatorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/eduverse/pkg/generator"
	"github.com/papercomputeco/eduverse/pkg/generator/gemini"
)

type NewGeneratorOpts struct {
	ProviderType string
	APIKey       string
	Model        string
	Logger       *slog.Logger
}

func NewGenerator(ctx context.Context, o *NewGeneratorOpts) (generator.Generator, error) {
	switch o.ProviderType {
	case "gemini", "":
		return gemini.NewGenerator(ctx, gemini.Config{
			APIKey: o.APIKey,
			Model:  o.Model,
			Logger: o.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", o.ProviderType)
	}
}
