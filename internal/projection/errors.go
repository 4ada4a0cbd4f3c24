package projection

import "errors"

// ErrProjection signals that a target store rejected an update, per
// spec.md §7. It is logged per-target by Service.Apply; it never halts
// the stream consumer, and is retried only by re-delivery (next shard
// replay or process restart), never in-line.
var ErrProjection = errors.New("projection: target rejected update")
