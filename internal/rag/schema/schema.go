package schema

// Metadata keys bound to every indexed chunk. These are the canonical field
// names of the vector index; each has exactly one type at write time.
const (
	MetadataKeyDocumentID  = "document_id"
	MetadataKeyCompanyID   = "company_id"
	MetadataKeyFilename    = "filename"
	MetadataKeyContentType = "content_type"
	MetadataKeyChunkIndex  = "chunk_index"
)

// Fragment is one bounded piece of extracted text produced by a Splitter.
// Fragments inherit the bound metadata of their source document unchanged;
// the splitter adds nothing of its own.
type Fragment struct {
	Text     string
	Metadata map[string]interface{}
}

// Entry is a record to be written to the vector index. IDs are caller-chosen
// and must be globally unique; re-adding an existing id is undefined, so
// callers always generate fresh ones.
type Entry struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata map[string]interface{}
}

// Match is a single vector index hit. Distance is the raw index distance;
// callers derive a similarity score as 1 - distance.
type Match struct {
	ID       string
	Content  string
	Metadata map[string]interface{}
	Distance float32
}

// Filter is a conjunction of metadata equality and set-membership predicates
// applied to index queries.
type Filter struct {
	Equals map[string]interface{}
	In     map[string][]interface{}
}

// Passage is a retrieved unit of context handed to generation. It is
// transient and never persisted. Score is a normalized relevance in [0,1];
// 1.0 marks forced inclusion rather than computed similarity. ChunkID is the
// vector index entry id, used for deduplication.
type Passage struct {
	Content    string  `json:"content"`
	DocumentID uint    `json:"document_id"`
	Filename   string  `json:"filename"`
	Score      float64 `json:"score"`
	ChunkID    string  `json:"chunk_id"`
}
