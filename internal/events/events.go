// Package events implements the fire/poll queue that carries host-side
// level changes to every participant.
//
// The host fires events; each participant (the host included) polls with
// its own cursor and applies every event exactly once, in firing order.
package events

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what an event does to a level.
type Kind string

const (
	KindLadder      Kind = "ladder"
	KindShaft       Kind = "shaft"
	KindElevatorLit Kind = "elevator_lit"
	KindStoneBroken Kind = "stone_broken"
	KindMonsterDied Kind = "monster_died"
)

// ErrUnknownParticipant is returned when polling with a name that was never joined.
var ErrUnknownParticipant = errors.New("unknown participant")

// Event is one queued level change.
type Event struct {
	ID    uuid.UUID `json:"id"`
	Seq   uint64    `json:"seq"`
	Level int       `json:"level"`
	Kind  Kind      `json:"kind"`
	X     int       `json:"x"`
	Y     int       `json:"y"`
	Ref   string    `json:"ref,omitempty"`
	Fired time.Time `json:"fired"`
}

// Queue is an ordered event log with per-participant cursors.
type Queue struct {
	events  []Event // ascending Seq, possibly with gaps after Ingest
	nextSeq uint64
	cursors map[string]uint64 // participant -> next sequence to apply
	mu      sync.Mutex
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		nextSeq: 1,
		cursors: make(map[string]uint64),
	}
}

// Join registers a participant. A new participant starts at the next event
// to be fired; joining twice keeps the existing cursor.
func (q *Queue) Join(participant string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.cursors[participant]; !ok {
		q.cursors[participant] = q.nextSeq
	}
}

// Leave drops a participant and trims events nobody still needs.
func (q *Queue) Leave(participant string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.cursors, participant)
	q.trimLocked()
}

// Fire appends an event, assigning its sequence number and ID.
func (q *Queue) Fire(e Event) Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	e.Seq = q.nextSeq
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Fired.IsZero() {
		e.Fired = time.Now()
	}
	q.nextSeq++
	q.events = append(q.events, e)
	return e
}

// Ingest appends an event received from a remote host, keeping its
// sequence number. Events at or below the last ingested sequence are
// duplicates and are dropped; the return value reports acceptance.
func (q *Queue) Ingest(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e.Seq < q.nextSeq {
		return false
	}
	q.events = append(q.events, e)
	q.nextSeq = e.Seq + 1
	return true
}

// Poll hands every event the participant has not applied yet to apply, in
// order, and advances the cursor past each one before the next is handed
// out. The number of applied events is returned.
func (q *Queue) Poll(participant string, apply func(Event)) (int, error) {
	q.mu.Lock()
	cursor, ok := q.cursors[participant]
	if !ok {
		q.mu.Unlock()
		return 0, ErrUnknownParticipant
	}
	pending := q.pendingLocked(cursor)
	if len(pending) > 0 {
		q.cursors[participant] = pending[len(pending)-1].Seq + 1
	}
	q.trimLocked()
	q.mu.Unlock()

	for _, e := range pending {
		apply(e)
	}
	return len(pending), nil
}

// Pending returns how many events the participant has yet to apply.
func (q *Queue) Pending(participant string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	cursor, ok := q.cursors[participant]
	if !ok {
		return 0
	}
	return len(q.pendingLocked(cursor))
}

// Len returns the number of retained events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

func (q *Queue) pendingLocked(cursor uint64) []Event {
	start := len(q.events)
	for i, e := range q.events {
		if e.Seq >= cursor {
			start = i
			break
		}
	}
	if start == len(q.events) {
		return nil
	}
	out := make([]Event, len(q.events)-start)
	copy(out, q.events[start:])
	return out
}

// trimLocked drops events every participant has applied.
func (q *Queue) trimLocked() {
	if len(q.events) == 0 {
		return
	}
	low := q.nextSeq
	for _, c := range q.cursors {
		if c < low {
			low = c
		}
	}
	drop := 0
	for drop < len(q.events) && q.events[drop].Seq < low {
		drop++
	}
	if drop > 0 {
		q.events = append(q.events[:0:0], q.events[drop:]...)
	}
}
