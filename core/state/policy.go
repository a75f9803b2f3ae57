package state

// The original client applies some mutations locally ahead of push
// confirmation and leaves others to the event stream. The asymmetry is
// deliberate and kept in one table so it stays auditable:
//
//   users       create + delete applied locally, dedupe by id on the event
//   sessions    push-confirmed only
//   assignments never merged incrementally; assignment events trigger a
//               full refetch of the collection
type entity int

const (
	entityUser entity = iota
	entitySession
	entityAssignment
)

type applyPolicy struct {
	optimisticCreate bool
	optimisticDelete bool
	// refetchOnEvent replaces incremental merging with a full collection
	// refetch whenever a related push event arrives.
	refetchOnEvent bool
}

var policies = map[entity]applyPolicy{
	entityUser:       {optimisticCreate: true, optimisticDelete: true},
	entitySession:    {},
	entityAssignment: {refetchOnEvent: true},
}

func policyFor(e entity) applyPolicy { return policies[e] }
