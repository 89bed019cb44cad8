package transcript

import (
	"sync"
	"testing"

	"github.com/nstogner/tandem/pkg/domain"
)

func TestAppendAssignsSequence(t *testing.T) {
	tr := New()

	for i := 0; i < 5; i++ {
		m := tr.Append(domain.Message{
			AgentID:     "a",
			Role:        domain.RoleAssistant,
			ContentType: domain.ContentTypeText,
			Content:     "hello",
		})
		if m.Seq != int64(i)+1 {
			t.Errorf("Seq = %d, want %d", m.Seq, i+1)
		}
		if m.ID == "" {
			t.Error("ID not assigned")
		}
		if m.Timestamp.IsZero() {
			t.Error("Timestamp not assigned")
		}
	}

	if tr.Len() != 5 {
		t.Errorf("Len = %d, want 5", tr.Len())
	}
}

func TestSequenceStrictlyIncreasingUnderConcurrency(t *testing.T) {
	tr := New()

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				tr.Append(domain.Message{Role: domain.RoleAssistant, ContentType: domain.ContentTypeText})
			}
		}()
	}
	wg.Wait()

	msgs := tr.Snapshot()
	if len(msgs) != writers*perWriter {
		t.Fatalf("len = %d, want %d", len(msgs), writers*perWriter)
	}
	for i, m := range msgs {
		if m.Seq != int64(i)+1 {
			t.Fatalf("msgs[%d].Seq = %d, want %d (gap or duplicate)", i, m.Seq, i+1)
		}
	}
}

func TestSnapshotIsolation(t *testing.T) {
	tr := New()
	tr.Append(domain.Message{Content: "one"})

	snap := tr.Snapshot()
	tr.Append(domain.Message{Content: "two"})

	if len(snap) != 1 {
		t.Errorf("snapshot len = %d, want 1", len(snap))
	}
	snap[0].Content = "mutated"
	if tr.Snapshot()[0].Content != "one" {
		t.Error("snapshot mutation leaked into transcript")
	}
}

func TestSince(t *testing.T) {
	tr := New()
	for i := 0; i < 4; i++ {
		tr.Append(domain.Message{Content: "m"})
	}

	got := tr.Since(2)
	if len(got) != 2 {
		t.Fatalf("Since(2) len = %d, want 2", len(got))
	}
	if got[0].Seq != 3 || got[1].Seq != 4 {
		t.Errorf("Since(2) seqs = %d,%d, want 3,4", got[0].Seq, got[1].Seq)
	}

	if n := len(tr.Since(tr.LastSeq())); n != 0 {
		t.Errorf("Since(last) len = %d, want 0", n)
	}
}

func TestSubscribeNotifies(t *testing.T) {
	tr := New()
	sub := tr.Subscribe()

	tr.Append(domain.Message{Content: "x"})

	select {
	case <-sub:
	default:
		t.Fatal("expected a notification after append")
	}

	// Coalescing: many appends, at least one pending signal.
	for i := 0; i < 10; i++ {
		tr.Append(domain.Message{Content: "y"})
	}
	select {
	case <-sub:
	default:
		t.Fatal("expected a coalesced notification")
	}
}

func TestRestoreResumesNumbering(t *testing.T) {
	tr := New()
	msgs := []domain.Message{
		{Seq: 1, ID: "m1", Role: domain.RoleAssistant, ContentType: domain.ContentTypeText},
		{Seq: 2, ID: "m2", Role: domain.RoleAssistant, ContentType: domain.ContentTypeText},
	}
	if err := tr.Restore(msgs); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	m := tr.Append(domain.Message{Content: "next"})
	if m.Seq != 3 {
		t.Errorf("Seq after restore = %d, want 3", m.Seq)
	}
}

func TestRestoreRejectsGaps(t *testing.T) {
	tr := New()
	msgs := []domain.Message{
		{Seq: 1, ID: "m1"},
		{Seq: 3, ID: "m3"},
	}
	if err := tr.Restore(msgs); err == nil {
		t.Fatal("expected error for gapped sequence, got nil")
	}
}
