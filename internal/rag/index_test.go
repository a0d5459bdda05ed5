package rag

import (
	"context"
	"math"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-agent/internal/clinic"
)

// fakeEmbedding is a deterministic stand-in for the OpenAI embeddings API.
// Identical texts map to identical unit vectors, so querying with a stored
// document's content ranks that document first.
func fakeEmbedding(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 16)
	for i := 0; i < len(text); i++ {
		v[int(text[i])%len(v)]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		v[0] = 1
		return v, nil
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v, nil
}

func testDocs() []clinic.Document {
	return []clinic.Document{
		{Content: "Q: Do you accept walk-ins?\nA: No, appointments are required.", Metadata: map[string]string{"section": "faqs", "kind": "faq"}},
		{Content: "Accepted Insurance: We accept Aetna, Cigna, Blue Cross", Metadata: map[string]string{"section": "insurance_and_billing", "kind": "list"}},
		{Content: "Clinic Details - Address: 12 River Road", Metadata: map[string]string{"section": "clinic_details", "kind": "info"}},
	}
}

func createIndex(t *testing.T) *Index {
	index, err := NewIndex(chromem.EmbeddingFunc(fakeEmbedding))
	require.NoError(t, err)
	return index
}

func TestBootstrap(t *testing.T) {
	index := createIndex(t)
	require.Equal(t, 0, index.Count())

	require.NoError(t, index.Bootstrap(context.Background(), testDocs()))
	assert.Equal(t, 3, index.Count())

	// A populated index skips re-indexing.
	require.NoError(t, index.Bootstrap(context.Background(), testDocs()))
	assert.Equal(t, 3, index.Count())
}

func TestSearch(t *testing.T) {
	index := createIndex(t)
	require.NoError(t, index.Bootstrap(context.Background(), testDocs()))

	query := "Accepted Insurance: We accept Aetna, Cigna, Blue Cross"
	results, err := index.Search(context.Background(), query, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, query, results[0].Content)
	assert.Equal(t, "insurance_and_billing", results[0].Metadata["section"])
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-5)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestSearchClampsTopK(t *testing.T) {
	index := createIndex(t)
	require.NoError(t, index.Bootstrap(context.Background(), testDocs()))

	results, err := index.Search(context.Background(), "insurance", 50)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	// Non-positive k falls back to the default.
	results, err = index.Search(context.Background(), "insurance", 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchEmptyIndex(t *testing.T) {
	index := createIndex(t)

	results, err := index.Search(context.Background(), "insurance", 3)
	require.NoError(t, err)
	assert.Empty(t, results)

	text, err := index.Context(context.Background(), "insurance", 3)
	require.NoError(t, err)
	assert.Equal(t, NoResults, text)
}

func TestContext(t *testing.T) {
	index := createIndex(t)
	require.NoError(t, index.Bootstrap(context.Background(), testDocs()))

	out, err := index.Context(context.Background(), "Clinic Details - Address: 12 River Road", 2)
	require.NoError(t, err)
	assert.Contains(t, out, "[Source 1]\nClinic Details - Address: 12 River Road")
	assert.Contains(t, out, "[Source 2]")
}

func TestFormatContext(t *testing.T) {
	assert.Equal(t, NoResults, FormatContext(nil))

	out := FormatContext([]Result{
		{Content: "first chunk"},
		{Content: "second chunk"},
	})
	assert.Equal(t, "[Source 1]\nfirst chunk\n\n[Source 2]\nsecond chunk", out)
}

func TestReset(t *testing.T) {
	index := createIndex(t)
	require.NoError(t, index.Bootstrap(context.Background(), testDocs()))
	require.Equal(t, 3, index.Count())

	replacement := []clinic.Document{
		{Content: "Payment Methods: We accept cash", Metadata: map[string]string{"section": "insurance_and_billing"}},
	}
	require.NoError(t, index.Reset(context.Background(), replacement))
	assert.Equal(t, 1, index.Count())

	results, err := index.Search(context.Background(), "Payment Methods: We accept cash", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Payment Methods: We accept cash", results[0].Content)
}
