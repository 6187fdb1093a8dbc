package domain

// Channel identifies the retrieval method that produced a hit.
type Channel string

const (
	ChannelVector  Channel = "vector"
	ChannelKeyword Channel = "keyword"
)

// Chunk is a bounded span of documentation text with its metadata.
type Chunk struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Title      string `json:"title"`
	SourceURL  string `json:"source_url"`
	DocType    string `json:"doc_type,omitempty"`
	QualityTag string `json:"quality_tag,omitempty"`
}

// ScoredChunk is a single channel hit with the channel's raw score.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

type RetrievalResult struct {
	Chunk           Chunk     `json:"chunk"`
	RawScore        float64   `json:"raw_score"`
	NormalizedScore float64   `json:"normalized_score"`
	FinalScore      float64   `json:"final_score"`
	Channels        []Channel `json:"channels"`
}

// HasChannel reports whether the result was matched by ch.
func (r RetrievalResult) HasChannel(ch Channel) bool {
	for _, c := range r.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// ChannelTag renders the matched channels as used in prompts and logs.
func (r RetrievalResult) ChannelTag() string {
	switch {
	case r.HasChannel(ChannelVector) && r.HasChannel(ChannelKeyword):
		return "both"
	case len(r.Channels) == 1:
		return string(r.Channels[0])
	default:
		return "unknown"
	}
}

type RetrievalResponse struct {
	SessionID          string            `json:"session_id"`
	Answer             string            `json:"answer"`
	Sources            []string          `json:"sources"`
	RetrievedCount     int               `json:"retrieved_count"`
	ChannelsUsed       []Channel         `json:"channels_used"`
	EnhancementApplied bool              `json:"enhancement_applied"`
	EnhancedQuery      string            `json:"enhanced_query,omitempty"`
	GenerationFailed   bool              `json:"generation_failed,omitempty"`
	Results            []RetrievalResult `json:"results,omitempty"`
}
