package store

import (
	"testing"

	"github.com/mirelabs/velora/internal/database"
	"github.com/mirelabs/velora/internal/model"
)

func setupCampaignLogTestDB(t *testing.T) *CampaignLogStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCampaignLogStore(db)
}

func TestCampaignLogThrottleWindow(t *testing.T) {
	ls := setupCampaignLogTestDB(t)

	t0 := int64(1_000_000)
	day := int64(24 * 3600)

	if err := ls.Append(model.CampaignLogEntry{ChatID: 1, Campaign: "price", StepIdx: 0, SentAt: t0}); err != nil {
		t.Fatalf("append: %v", err)
	}

	// One hour later: still inside the 24h window.
	sent, err := ls.SentSince(1, "price", t0+3600-day)
	if err != nil {
		t.Fatalf("sent since: %v", err)
	}
	if !sent {
		t.Error("send 1h after step zero should be suppressed")
	}

	// 25 hours later: outside the window.
	sent, err = ls.SentSince(1, "price", t0+25*3600-day)
	if err != nil {
		t.Fatalf("sent since: %v", err)
	}
	if sent {
		t.Error("send 25h after step zero should not be suppressed")
	}
}

func TestCampaignLogStepZeroOnlyThrottles(t *testing.T) {
	ls := setupCampaignLogTestDB(t)

	// Only a later step logged, e.g. a resumed sequence. Does not throttle.
	if err := ls.Append(model.CampaignLogEntry{ChatID: 1, Campaign: "price", StepIdx: 2, SentAt: 500}); err != nil {
		t.Fatalf("append: %v", err)
	}

	sent, err := ls.SentSince(1, "price", 0)
	if err != nil {
		t.Fatalf("sent since: %v", err)
	}
	if sent {
		t.Error("non-zero step entries must not throttle")
	}
}

func TestCampaignLogPayloadIsolation(t *testing.T) {
	ls := setupCampaignLogTestDB(t)

	if err := ls.Append(model.CampaignLogEntry{
		ChatID: 1, Campaign: "slots_followup", StepIdx: 0, PayloadHash: "timesall:7:100", SentAt: 1000,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	sent, err := ls.SentPayloadSince(1, "slots_followup", "timesall:7:100", 0)
	if err != nil {
		t.Fatalf("sent payload since: %v", err)
	}
	if !sent {
		t.Error("same payload should be suppressed")
	}

	sent, err = ls.SentPayloadSince(1, "slots_followup", "timesall:8:100", 0)
	if err != nil {
		t.Fatalf("sent payload since: %v", err)
	}
	if sent {
		t.Error("different payload must throttle independently")
	}
}

func TestCampaignLogSeparateChatsAndCampaigns(t *testing.T) {
	ls := setupCampaignLogTestDB(t)

	if err := ls.Append(model.CampaignLogEntry{ChatID: 1, Campaign: "price", StepIdx: 0, SentAt: 1000}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if sent, _ := ls.SentSince(2, "price", 0); sent {
		t.Error("other chat should not be throttled")
	}
	if sent, _ := ls.SentSince(1, "schedule", 0); sent {
		t.Error("other campaign should not be throttled")
	}
}
