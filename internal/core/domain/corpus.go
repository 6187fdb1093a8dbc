package domain

import "time"

// CorpusEvent announces that the documentation corpus changed and derived
// indexes should be rebuilt.
type CorpusEvent struct {
	Reason      string    `json:"reason"`
	ChunkCount  int       `json:"chunk_count,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// CorpusFingerprint summarizes the corpus cheaply enough to poll for changes.
type CorpusFingerprint struct {
	ChunkCount    int       `json:"chunk_count"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

func (f CorpusFingerprint) Equal(other CorpusFingerprint) bool {
	return f.ChunkCount == other.ChunkCount && f.LastUpdatedAt.Equal(other.LastUpdatedAt)
}
