package badger

import (
	"encoding/binary"

	"github.com/poiesic/folio/core"
)

// Key prefixes for different data types.
// Collection names cannot contain ':' so prefixes never overlap.
const (
	schemaPrefix = "colsch:"
	recordPrefix = "rec:"
	recordIDSeq  = "recseq"
)

// makeSchemaKey generates the key holding a collection's schema.
func makeSchemaKey(collection string) []byte {
	return []byte(schemaPrefix + collection)
}

// makeRecordPrefix generates the key prefix shared by all records of a collection.
// Format: rec:collection:
func makeRecordPrefix(collection string) []byte {
	return []byte(recordPrefix + collection + ":")
}

// makeRecordKey generates a key for a record by collection and ID.
// Format: rec:collection:id
func makeRecordKey(collection string, id core.ID) []byte {
	prefix := makeRecordPrefix(collection)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so iteration visits records in ID order
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
