package api_test

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	backend "clinic-agent/internal/api"
	"clinic-agent/internal/clinic"
	"clinic-agent/internal/rag"
	"clinic-agent/pkg/api"
)

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

func createFaqRouter(t *testing.T) (chi.Router, *rag.Index) {
	info, err := clinic.Parse([]byte(`{
		"clinic_details": {"name": "Riverside Medical", "phone": "+1-555-999-0000", "email": "hello@riverside.example"},
		"insurance_and_billing": {"accepted_insurance": ["Aetna", "Cigna"]},
		"faqs": [{"question": "Do you offer telehealth?", "answer": "Yes, for follow-ups."}]
	}`))
	require.NoError(t, err)

	index, err := rag.NewIndex(chromem.EmbeddingFunc(fakeEmbedding))
	require.NoError(t, err)
	require.NoError(t, index.Bootstrap(context.Background(), info.Documents()))

	service := backend.NewFaqService(index, info)
	router := chi.NewRouter()
	service.AddRoutes(router)
	return router, index
}

func TestFaqSearch(t *testing.T) {
	router, _ := createFaqRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/faq/search", api.FaqSearchRequest{
		Question: "Accepted Insurance: We accept Aetna, Cigna",
		TopK:     1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.FaqSearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Accepted Insurance: We accept Aetna, Cigna", resp.Results[0].Content)
	assert.Equal(t, "insurance_and_billing", resp.Results[0].Metadata["section"])
	assert.Contains(t, resp.Context, "[Source 1]")
}

func TestFaqSearchDefaultTopK(t *testing.T) {
	router, _ := createFaqRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/faq/search", api.FaqSearchRequest{Question: "insurance"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.FaqSearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, rag.DefaultTopK)
}

func TestFaqSearchEmptyQuestion(t *testing.T) {
	router, _ := createFaqRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/faq/search", api.FaqSearchRequest{Question: "   "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFaqReindex(t *testing.T) {
	router, index := createFaqRouter(t)
	before := index.Count()

	rec := doJSON(t, router, http.MethodPost, "/faq/reindex", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.FaqReindexResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, before, resp.Chunks)
	assert.Equal(t, before, index.Count())
}
