package store

import (
	"reflect"
	"testing"

	"github.com/mirelabs/velora/internal/database"
)

func setupSlotSubTestDB(t *testing.T) *SlotSubStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSlotSubStore(db)
}

func TestSlotSubSubscribeKeepsBaseline(t *testing.T) {
	ss := setupSlotSubTestDB(t)

	if err := ss.Subscribe(1, 7, []string{"2026-09-01|10:00|12:00"}, 100); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	// Resubscribing must not reset the known set.
	if err := ss.Subscribe(1, 7, nil, 200); err != nil {
		t.Fatalf("resubscribe: %v", err)
	}

	subs, err := ss.ListForChat(1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(subs))
	}
	if !reflect.DeepEqual(subs[0].KnownSlots, []string{"2026-09-01|10:00|12:00"}) {
		t.Errorf("known slots = %v", subs[0].KnownSlots)
	}
	if subs[0].CreatedAt != 100 {
		t.Errorf("created_at = %d, want 100", subs[0].CreatedAt)
	}
}

func TestSlotSubSetKnown(t *testing.T) {
	ss := setupSlotSubTestDB(t)

	if err := ss.Subscribe(1, 7, []string{"a"}, 100); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := ss.SetKnown(1, 7, []string{"b", "c"}, 500); err != nil {
		t.Fatalf("set known: %v", err)
	}

	subs, _ := ss.ListForChat(1)
	if !reflect.DeepEqual(subs[0].KnownSlots, []string{"b", "c"}) {
		t.Errorf("known slots = %v", subs[0].KnownSlots)
	}
	if subs[0].LastNotifiedAt != 500 {
		t.Errorf("last_notified_at = %d", subs[0].LastNotifiedAt)
	}

	// A pass with nothing new overwrites the baseline without touching the
	// notify timestamp.
	if err := ss.SetKnown(1, 7, []string{"b"}, 0); err != nil {
		t.Fatalf("set known quiet: %v", err)
	}
	subs, _ = ss.ListForChat(1)
	if !reflect.DeepEqual(subs[0].KnownSlots, []string{"b"}) {
		t.Errorf("known slots = %v", subs[0].KnownSlots)
	}
	if subs[0].LastNotifiedAt != 500 {
		t.Errorf("last_notified_at changed to %d", subs[0].LastNotifiedAt)
	}
}

func TestSlotSubUnsubscribe(t *testing.T) {
	ss := setupSlotSubTestDB(t)

	if err := ss.Subscribe(1, 7, nil, 100); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	has, err := ss.Has(1, 7)
	if err != nil || !has {
		t.Fatalf("has = %v, %v", has, err)
	}
	if err := ss.Unsubscribe(1, 7); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	has, err = ss.Has(1, 7)
	if err != nil || has {
		t.Fatalf("after unsubscribe has = %v, %v", has, err)
	}
}

func TestChannelStateBaseline(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	cs := NewChannelStateStore(db)

	st, err := cs.Get(7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st != nil {
		t.Fatal("unknown profile should read as nil state")
	}

	if err := cs.Save(7, []string{"a", "b"}, 0); err != nil {
		t.Fatalf("save baseline: %v", err)
	}
	st, err = cs.Get(7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(st.KnownSlots, []string{"a", "b"}) || st.LastPostedAt != 0 {
		t.Errorf("state = %+v", st)
	}

	if err := cs.Save(7, []string{"b", "c"}, 900); err != nil {
		t.Fatalf("save posted: %v", err)
	}
	st, _ = cs.Get(7)
	if st.LastPostedAt != 900 {
		t.Errorf("last_posted_at = %d", st.LastPostedAt)
	}

	// Quiet pass keeps the posted timestamp.
	if err := cs.Save(7, []string{"c"}, 0); err != nil {
		t.Fatalf("save quiet: %v", err)
	}
	st, _ = cs.Get(7)
	if st.LastPostedAt != 900 || !reflect.DeepEqual(st.KnownSlots, []string{"c"}) {
		t.Errorf("state = %+v", st)
	}
}
