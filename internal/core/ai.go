package core

import "context"

// EmbeddingProvider turns texts into vectors. Model identifies the vector
// space so rows embedded by different providers are never compared.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}
