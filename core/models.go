package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for corpus entities.
// It is derived from content so re-ingesting the same material is idempotent.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the ID in decimal form, as used in links and source identifiers.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single conversation turn. The pipeline only reads these;
// the chat/session subsystem owns them.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DefaultNamespace is the similarity-index namespace used when a chunk names none.
const DefaultNamespace = "default"

// Document is the corpus accessor's view of an uploaded document.
// Documents with an empty OwnerID are shared with every user.
type Document struct {
	Id               ID
	OwnerID          string
	Name             string
	OriginalFilename string
	Description      string
	MimeType         string
	InsertedAt       time.Time // When the document was inserted into the corpus
	UpdatedAt        time.Time // When the document was last updated
}

// Chunk is an indexed slice of a document's text.
// Tags and Confidence are computed at ingestion; Vector is populated asynchronously.
type Chunk struct {
	Id         ID
	DocumentId ID
	OwnerID    string
	Namespace  string
	Index      int
	Content    string
	Vector     []float32 // Embedding vector for similarity search (populated by ingestion)
	Tags       []string  // Domain terms found in Content
	Confidence float32   // Content-quality estimate in [0,1]
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// SimilarityMatch represents a chunk match from vector similarity search.
type SimilarityMatch struct {
	Chunk *Chunk
	Score float32
}

// WebSearchLogEntry records an escalation to external web search
// so an admin can review whether the finding belongs in the corpus.
type WebSearchLogEntry struct {
	ID           string
	Query        string
	Response     string
	Reason       string
	ReviewNeeded bool
	UserID       string
	CreatedAt    time.Time
	ReviewedAt   *time.Time
}

// WebCitation is a single result returned by the web-search service.
type WebCitation struct {
	Title       string
	Description string
	URL         string
}

// WebResult is the outcome of a web-search escalation.
type WebResult struct {
	Content   string
	Citations []WebCitation
}
