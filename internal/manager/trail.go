package manager

import (
	"context"
	"fmt"
)

// trail records which records are being synced on the current call stack.
//
// Sync cascades recursively through references. A reference cycle
// (A -> B -> A) would recurse forever, so before syncing a target the
// resolver checks whether that target is already on the trail and, if so,
// treats it as synched instead of descending again.
//
// The trail is immutable and travels in the context, so sibling branches
// of the cascade never see each other's entries.
type trail struct {
	parent *trail
	key    string
}

type trailKey struct{}

// trailKeyOf identifies a record across managers. Transient records have no
// persistent id, so their session-local runtime id stands in.
func trailKeyOf(kind string, b *Base) string {
	if b.persistentID != 0 {
		return fmt.Sprintf("%s/%d", kind, b.persistentID)
	}
	return fmt.Sprintf("%s/r%d", kind, b.runtimeID)
}

// onTrail reports whether the record identified by key is being synced
// further up the stack.
func onTrail(ctx context.Context, key string) bool {
	t, _ := ctx.Value(trailKey{}).(*trail)
	for ; t != nil; t = t.parent {
		if t.key == key {
			return true
		}
	}
	return false
}

// withTrail returns a context whose trail includes key.
func withTrail(ctx context.Context, key string) context.Context {
	parent, _ := ctx.Value(trailKey{}).(*trail)
	return context.WithValue(ctx, trailKey{}, &trail{parent: parent, key: key})
}

// TrailDepth returns how many records are being synced on the current
// call stack. Record Sync hooks can use it to bound their own work.
func TrailDepth(ctx context.Context) int {
	n := 0
	t, _ := ctx.Value(trailKey{}).(*trail)
	for ; t != nil; t = t.parent {
		n++
	}
	return n
}
