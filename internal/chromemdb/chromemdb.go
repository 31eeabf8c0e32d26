package chromemdb

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
)

// Metadata keys used for manual chunks stored in the collection. The
// ingestion process writes them; the retriever reads them back.
const (
	MetaFilename   = "filename"
	MetaChunkIndex = "chunk_index"
)

// VectorDBManager encapsulates the chromem-go database holding the
// embedded manual chunks.
type VectorDBManager struct {
	db         *chromem.DB
	collection *chromem.Collection
}

const compress = false

// NewVectorDBManager opens the persisted chunk store, or an in-memory
// one when inMemory is set (used by tests).
func NewVectorDBManager(dbPath string, inMemory bool) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %v", err)
		}
	}
	return &VectorDBManager{db: db}, nil
}

// GetOrCreateCollection binds the manager to the named collection.
func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}
	m.collection = c
	return c, nil
}

// Count returns the number of stored chunks.
func (m *VectorDBManager) Count() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// CreateDocs adds embedded chunks to the collection.
func (m *VectorDBManager) CreateDocs(ctx context.Context, documents []chromem.Document) error {
	err := m.collection.AddDocuments(ctx, documents, runtime.NumCPU())
	if err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// SearchWithQueryOptions performs a similarity search over the stored
// chunks. Either QueryText or QueryEmbedding must be set.
func (m *VectorDBManager) SearchWithQueryOptions(ctx context.Context, opts chromem.QueryOptions) ([]chromem.Result, error) {
	if opts.QueryText == "" && opts.QueryEmbedding == nil {
		return nil, fmt.Errorf("either query or embedding must be provided")
	}
	results, err := m.collection.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}
	return results, nil
}
