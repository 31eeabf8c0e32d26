package db

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"guide-rag/internal/config"
)

// ManualChunk is one embedded slice of manual text in the pgvector
// table, as written by the external ingestion process.
type ManualChunk struct {
	bun.BaseModel  `bun:"table:manual_chunks,alias:mc"`
	ID             int64     `bun:"id,pk,autoincrement"`
	Content        string    `bun:"content,notnull"`
	SourceFilename string    `bun:"source_filename,notnull"`
	ChunkIndex     int       `bun:"chunk_index,notnull"`
	Embedding      []float32 `bun:"embedding,notnull,type:vector(384)"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.URL + "?sslmode=disable"
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Password))), nil
}

// SearchChunks returns the limit nearest chunks to the query embedding.
func SearchChunks(ctx context.Context, db *bun.DB, queryEmbedding []float32, limit int) ([]ManualChunk, error) {
	var chunks []ManualChunk
	err := db.NewSelect().
		Model(&chunks).
		Column("id", "content", "source_filename", "chunk_index").
		OrderExpr("embedding <-> ?", queryEmbedding).
		Limit(limit).
		Scan(ctx)
	return chunks, err
}

// CountChunks reports how many chunks are indexed; used at startup to
// detect a missing text index.
func CountChunks(ctx context.Context, db *bun.DB) (int, error) {
	return db.NewSelect().Model((*ManualChunk)(nil)).Count(ctx)
}
