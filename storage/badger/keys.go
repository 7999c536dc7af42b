package badger

import (
	"encoding/binary"

	"github.com/poiesic/merchantdesk/core"
)

// Key prefixes for different data types
const (
	documentPrefix       = "docrec"
	documentIDSeq        = "docrecseq"
	chunkPrefix          = "chkrec"
	chunkDocumentPrefix  = "chkdoc"
	chunkNamespacePrefix = "chkns"
)

// appendID writes id in BigEndian order so lexicographic sort follows numeric order.
func appendID(buf []byte, id core.ID) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}

// makeDocumentKey generates a key for a document by ID.
// Format: prefix:id
func makeDocumentKey(id core.ID) []byte {
	return appendID([]byte(documentPrefix+":"), id)
}

// makeChunkKey generates a key for a chunk by ID.
// Format: prefix:id
func makeChunkKey(id core.ID) []byte {
	return appendID([]byte(chunkPrefix+":"), id)
}

// makeChunkDocumentKey generates a composite key for the document index.
// Format: prefix:documentID:index
func makeChunkDocumentKey(documentID core.ID, index int) []byte {
	buf := makePartialChunkDocumentKey(documentID)
	return binary.BigEndian.AppendUint64(buf, uint64(index))
}

// makePartialChunkDocumentKey generates a partial key for the chunks of one document.
// Format: prefix:documentID
func makePartialChunkDocumentKey(documentID core.ID) []byte {
	return appendID([]byte(chunkDocumentPrefix+":"), documentID)
}

// makeChunkNamespaceKey generates a composite key for the namespace index.
// Format: prefix:namespace\x00chunkID
func makeChunkNamespaceKey(namespace string, chunkID core.ID) []byte {
	return appendID(makePartialChunkNamespaceKey(namespace), chunkID)
}

// makePartialChunkNamespaceKey generates a partial key for namespace scans.
// The NUL terminator keeps "sales" from matching "sales-west".
func makePartialChunkNamespaceKey(namespace string) []byte {
	buf := make([]byte, 0, len(chunkNamespacePrefix)+len(namespace)+2+8)
	buf = append(buf, chunkNamespacePrefix...)
	buf = append(buf, ':')
	buf = append(buf, namespace...)
	return append(buf, 0)
}
