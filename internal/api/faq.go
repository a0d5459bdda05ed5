package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"clinic-agent/internal/clinic"
	"clinic-agent/internal/rag"
	"clinic-agent/pkg/api"
)

type FaqService struct {
	index *rag.Index
	info  *clinic.Info
}

func NewFaqService(index *rag.Index, info *clinic.Info) *FaqService {
	return &FaqService{index: index, info: info}
}

func (s *FaqService) AddRoutes(r chi.Router) {
	r.Route("/faq", func(r chi.Router) {
		r.Post("/search", RestHandler(s.Search))
		r.Post("/reindex", RestHandler(s.Reindex))
	})
}

func (s *FaqService) Search(r *http.Request) (any, error) {
	req, err := ParseRequest[api.FaqSearchRequest](r)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "question must not be empty")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = rag.DefaultTopK
	}

	results, err := s.index.Search(r.Context(), req.Question, topK)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error searching knowledge base")
	}

	resp := api.FaqSearchResponse{
		Results: make([]api.FaqSearchResult, 0, len(results)),
		Context: rag.FormatContext(results),
	}
	for _, res := range results {
		resp.Results = append(resp.Results, api.FaqSearchResult{
			Content:    res.Content,
			Metadata:   res.Metadata,
			Similarity: res.Similarity,
		})
	}
	return resp, nil
}

func (s *FaqService) Reindex(r *http.Request) (any, error) {
	if err := s.index.Reset(r.Context(), s.info.Documents()); err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error rebuilding knowledge base")
	}
	return api.FaqReindexResponse{Chunks: s.index.Count()}, nil
}
