// Package llm is the narrow boundary to a hosted text-generation model. The
// pipeline depends only on Client, never on a vendor response shape.
package llm

import "context"

type GenerateRequest struct {
	Prompt          string
	Temperature     float64
	MaxOutputTokens int
}

type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}
