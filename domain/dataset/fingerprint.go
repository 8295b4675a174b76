package dataset

import (
	"strconv"
	"strings"

	"popdash/domain/core"
)

// Fingerprint hashes an ordered record sequence. Equal sequences always
// produce equal fingerprints.
func Fingerprint(records []Record) core.Hash {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(r.Period.Label)
		b.WriteByte(0x1f)
		b.WriteString(r.Category)
		b.WriteByte(0x1f)
		b.WriteString(strconv.FormatInt(r.Value, 10))
		b.WriteByte('\n')
	}
	return core.NewHash([]byte(b.String()))
}
