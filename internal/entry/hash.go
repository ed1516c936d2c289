package entry

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// mixinHash hashes the (mixin_operations, parent_class) tuple that controls
// ancestor-cache invalidation (invariant I3). It is grounded on the
// teacher's use of xxhash for fast content-change detection
// (internal/core/file_content_store.go): instead of deep-comparing the
// slice and string on every add/delete, the index compares this digest.
func mixinHash(ops []MixinOp, parentClass string, hasParent bool) uint64 {
	var b strings.Builder
	for _, op := range ops {
		b.WriteByte(byte('0' + op.Kind))
		b.WriteByte(0)
		b.WriteString(op.ModuleName)
		b.WriteByte(0)
	}
	if hasParent {
		b.WriteString("P:")
		b.WriteString(parentClass)
	} else {
		b.WriteString("P:-")
	}
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(len(ops)))
	return xxhash.Sum64String(b.String())
}
