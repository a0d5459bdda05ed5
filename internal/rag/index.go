// Package rag maintains the FAQ knowledge base: clinic documents are chunked,
// embedded, and stored in an embedded vector collection for semantic search.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"clinic-agent/internal/clinic"

	"github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	CollectionName = "clinic_faq"
	DefaultTopK    = 3

	chunkSize    = 500
	chunkOverlap = 50

	// NoResults is the sentinel returned by Context when nothing matches.
	NoResults = "No relevant information found in the knowledge base."
)

// Result is one retrieved chunk.
type Result struct {
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata"`
	Similarity float32           `json:"similarity"`
}

// Index wraps the vector collection and the text splitter.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	embed      chromem.EmbeddingFunc
	splitter   textsplitter.RecursiveCharacter
}

// NewIndex creates an in-memory index.
func NewIndex(embed chromem.EmbeddingFunc) (*Index, error) {
	return newIndex(chromem.NewDB(), embed)
}

// NewPersistentIndex creates an index persisted under dir; a previously
// indexed collection is reloaded instead of re-embedded.
func NewPersistentIndex(dir string, embed chromem.EmbeddingFunc) (*Index, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("could not open vector store at %s: %w", dir, err)
	}
	return newIndex(db, embed)
}

func newIndex(db *chromem.DB, embed chromem.EmbeddingFunc) (*Index, error) {
	collection, err := db.GetOrCreateCollection(CollectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("could not open collection %s: %w", CollectionName, err)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
	)

	return &Index{db: db, collection: collection, embed: embed, splitter: splitter}, nil
}

// Count returns the number of stored chunks.
func (ix *Index) Count() int {
	return ix.collection.Count()
}

// Bootstrap indexes the documents unless the collection already holds chunks
// (reloaded from a persistent store).
func (ix *Index) Bootstrap(ctx context.Context, docs []clinic.Document) error {
	if n := ix.collection.Count(); n > 0 {
		slog.Info("loaded existing knowledge base", "collection", CollectionName, "chunks", n)
		return nil
	}
	return ix.add(ctx, docs)
}

// Reset drops the collection and re-indexes the documents.
func (ix *Index) Reset(ctx context.Context, docs []clinic.Document) error {
	if err := ix.db.DeleteCollection(CollectionName); err != nil {
		return fmt.Errorf("could not delete collection: %w", err)
	}

	collection, err := ix.db.GetOrCreateCollection(CollectionName, nil, ix.embed)
	if err != nil {
		return fmt.Errorf("could not recreate collection: %w", err)
	}
	ix.collection = collection

	return ix.add(ctx, docs)
}

func (ix *Index) add(ctx context.Context, docs []clinic.Document) error {
	var chunks []chromem.Document
	for _, doc := range docs {
		pieces, err := ix.splitter.SplitText(doc.Content)
		if err != nil {
			return fmt.Errorf("could not split document: %w", err)
		}
		for _, piece := range pieces {
			chunks = append(chunks, chromem.Document{
				ID:       fmt.Sprintf("doc_%d", len(chunks)),
				Content:  piece,
				Metadata: doc.Metadata,
			})
		}
	}

	if len(chunks) == 0 {
		slog.Warn("no documents to index", "collection", CollectionName)
		return nil
	}

	slog.Info("indexing knowledge base", "collection", CollectionName, "chunks", len(chunks))

	if err := ix.collection.AddDocuments(ctx, chunks, runtime.NumCPU()); err != nil {
		return fmt.Errorf("could not add documents to vector store: %w", err)
	}
	return nil
}

// Search returns the top-k most similar chunks for the query.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if count := ix.collection.Count(); count == 0 {
		return nil, nil
	} else if k > count {
		k = count
	}

	matches, err := ix.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{
			Content:    m.Content,
			Metadata:   m.Metadata,
			Similarity: m.Similarity,
		})
	}
	return results, nil
}

// Context formats the top-k results as source blocks for the LLM prompt.
func (ix *Index) Context(ctx context.Context, query string, k int) (string, error) {
	results, err := ix.Search(ctx, query, k)
	if err != nil {
		return "", err
	}
	return FormatContext(results), nil
}

// FormatContext renders already-retrieved chunks as numbered source blocks.
func FormatContext(results []Result) string {
	if len(results) == 0 {
		return NoResults
	}

	var b strings.Builder
	for i, result := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source %d]\n%s", i+1, result.Content)
	}
	return b.String()
}
