// Package transcript holds the append-only conversation history shared by
// both agents. Messages are immutable once appended and carry strictly
// increasing sequence numbers; readers (status, save, the watch server)
// take consistent snapshots without blocking the writer.
package transcript

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nstogner/tandem/pkg/domain"
)

// Transcript is the single source of truth for the conversation history.
type Transcript struct {
	mu      sync.RWMutex
	msgs    []domain.Message
	nextSeq int64
	subs    []chan struct{}
}

// New creates an empty transcript. Sequence numbers start at 1.
func New() *Transcript {
	return &Transcript{nextSeq: 1}
}

// Append assigns the next sequence number, an ID and a timestamp (when
// unset), stores the message, and returns the stored copy.
func (t *Transcript) Append(m domain.Message) domain.Message {
	t.mu.Lock()
	m.Seq = t.nextSeq
	t.nextSeq++
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	t.msgs = append(t.msgs, m)
	subs := t.subs
	t.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return m
}

// Len returns the number of messages appended so far.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.msgs)
}

// Snapshot returns a copy of all messages in append order. The copy is
// consistent at the instant of the call and safe to use concurrently with
// further appends.
func (t *Transcript) Snapshot() []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// Since returns all messages with a sequence number greater than seq.
func (t *Transcript) Since(seq int64) []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	// Seq is dense and 1-based, so the slice offset is computable, but scan
	// from the end to stay correct if a restored transcript ever starts late.
	i := len(t.msgs)
	for i > 0 && t.msgs[i-1].Seq > seq {
		i--
	}
	out := make([]domain.Message, len(t.msgs)-i)
	copy(out, t.msgs[i:])
	return out
}

// LastSeq returns the sequence number of the most recent message, or 0 for
// an empty transcript.
func (t *Transcript) LastSeq() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.msgs) == 0 {
		return 0
	}
	return t.msgs[len(t.msgs)-1].Seq
}

// Subscribe returns a channel that receives a notification whenever a
// message is appended. Notifications are coalesced: a slow subscriber sees
// at least one signal for any number of appends and should drain with Since.
func (t *Transcript) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	t.mu.Lock()
	t.subs = append(t.subs, ch)
	t.mu.Unlock()
	return ch
}

// Restore replaces the transcript contents with previously persisted
// messages. Sequence numbers must be strictly increasing, dense, and start
// at 1; numbering resumes after the last restored message so a resumed run
// never collides.
func (t *Transcript) Restore(msgs []domain.Message) error {
	for i, m := range msgs {
		if m.Seq != int64(i)+1 {
			return fmt.Errorf("message %d has sequence %d, want %d", i, m.Seq, i+1)
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = make([]domain.Message, len(msgs))
	copy(t.msgs, msgs)
	t.nextSeq = int64(len(msgs)) + 1
	return nil
}
