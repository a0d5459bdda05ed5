package api

type FaqSearchRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

type FaqSearchResult struct {
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata"`
	Similarity float32           `json:"similarity"`
}

type FaqSearchResponse struct {
	Results []FaqSearchResult `json:"results"`
	Context string            `json:"context"`
}

type FaqReindexResponse struct {
	Chunks int `json:"chunks"`
}
