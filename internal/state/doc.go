// Package state holds every job the session has created and the mirror of
// the saved collection.
//
// # Overview
//
// The Store is the one place where job state changes. Producers are the
// session (submits, upscale and variation requests, saves) and the status
// pollers; the consumer is the UI, which reads Snapshot on its own refresh
// tick.
//
//	Producers:                      Consumer (UI):
//	┌──────────────────────┐       ┌────────────────┐
//	│ CreateJob            │       │                │
//	│ SetRemoteHandle      │       │                │
//	│ ApplyStatusUpdate    │──────→│ Snapshot()     │
//	│ ApplyModification... │(mutex)│      ↓         │
//	│ MarkSaved / PutSaved │       │ render UI      │
//	└──────────────────────┘       └────────────────┘
//
// # Update Semantics
//
// Mutations are copy-on-write. The job slice is replaced with a new slice
// in which only the targeted job differs, so an earlier Snapshot never
// observes later changes.
//
// Job status only moves forward:
//
//	pending → generating → done | error
//	done → upscaling → done | error   (BeginUpscale only)
//
// Once a job leaves generating, primary poll results can no longer change
// its status or progress. The one exception is the random style reference:
// the first concrete code the service reports replaces the random sentinel,
// and later reports are ignored.
//
// Modified images move from pending to ready or failed. A ready entry keeps
// its URL forever; resolving it again is a no-op. A failed entry may be
// replaced by a new placeholder under the same operation key.
//
// # Unknown Jobs
//
// Operations addressing a job that does not exist return ErrJobNotFound or
// report false. Callers treat that as a no-op: a poll result that lands
// after its job was dropped is simply discarded.
//
// # Testing
//
// The zero Store is ready to use. Now and NewID can be swapped for
// deterministic timestamps and identifiers.
package state
