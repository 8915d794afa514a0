package embedcache

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bkmr/bkmr/internal/apperr"
)

// OpenAIEmbeddingModel is the embedding model bkmr requests from the
// OpenAI API.
const OpenAIEmbeddingModel = openai.SmallEmbedding3

// OpenAIEmbeddingDimensions is the vector length text-embedding-3-small
// returns, used to size the in-memory vector index when this embedder is
// wired in.
const OpenAIEmbeddingDimensions = 1536

// OpenAIEmbedder calls the OpenAI embeddings endpoint. It is selected at
// startup when OPENAI_API_KEY is set; otherwise HashEmbedder is used.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder returns an embedder authenticated with apiKey.
func NewOpenAIEmbedder(apiKey string) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: openai.NewClient(apiKey), model: OpenAIEmbeddingModel}
}

// Embed requests a single embedding for text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeEmbedderUnavailable, "while calling the openai embeddings endpoint", err)
	}
	if len(resp.Data) == 0 {
		return nil, apperr.New(apperr.CodeEmbedFormatError, "openai returned no embedding data", nil)
	}
	return resp.Data[0].Embedding, nil
}
