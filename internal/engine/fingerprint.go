package engine

import (
	"encoding/binary"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/zeebo/xxh3"
)

// Fingerprint hashes the schema and the logical content of rec: every value
// and every null, column by column. Two records with equal fingerprints hold
// the same table with overwhelming probability, whatever their chunking or
// buffer layout.
func Fingerprint(rec arrow.Record) uint64 {
	h := xxh3.New()
	var scratch [8]byte

	writeString := func(s string) {
		binary.LittleEndian.PutUint64(scratch[:], uint64(len(s)))
		_, _ = h.Write(scratch[:])
		_, _ = h.WriteString(s)
	}

	writeString(rec.Schema().String())
	binary.LittleEndian.PutUint64(scratch[:], uint64(rec.NumRows()))
	_, _ = h.Write(scratch[:])

	for _, col := range rec.Columns() {
		for i := 0; i < col.Len(); i++ {
			if col.IsNull(i) {
				_, _ = h.Write([]byte{0})
				continue
			}
			_, _ = h.Write([]byte{1})
			writeString(col.ValueStr(i))
		}
	}
	return h.Sum64()
}
