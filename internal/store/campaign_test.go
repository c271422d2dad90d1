package store

import (
	"testing"

	"github.com/mirelabs/velora/internal/database"
	"github.com/mirelabs/velora/internal/model"
)

func setupCampaignTestDB(t *testing.T) *CampaignStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCampaignStore(db)
}

func TestCampaignGetMissing(t *testing.T) {
	cs := setupCampaignTestDB(t)

	c, err := cs.Get("price")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c != nil {
		t.Errorf("unmaterialized campaign should be nil, got %+v", c)
	}
}

func TestCampaignEnsureKeepsEdits(t *testing.T) {
	cs := setupCampaignTestDB(t)

	if err := cs.Ensure("price", "Price follow-up", 24, 100); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := cs.SetEnabled("price", false, 200); err != nil {
		t.Fatalf("set enabled: %v", err)
	}
	// Startup re-ensure must not flip the operator's disable back on.
	if err := cs.Ensure("price", "Price follow-up", 24, 300); err != nil {
		t.Fatalf("re-ensure: %v", err)
	}

	c, err := cs.Get("price")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c == nil || c.Enabled {
		t.Errorf("campaign = %+v, want disabled", c)
	}
}

func TestCampaignStepsRoundTrip(t *testing.T) {
	cs := setupCampaignTestDB(t)

	if err := cs.Ensure("schedule", "Schedule nudge", 24, 100); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	steps := []model.CampaignStep{
		{Kind: model.StepText, Delay: 0, Text: "Hello {name}"},
		{
			Kind: model.StepPhoto, Delay: 60, Caption: "Take a look", Image: "https://example.com/a.jpg",
			Buttons: [][]model.Button{{{Text: "Book", Action: "book:{profile_id}"}}},
		},
	}
	if err := cs.ReplaceSteps("schedule", steps); err != nil {
		t.Fatalf("replace steps: %v", err)
	}

	got, err := cs.Steps("schedule")
	if err != nil {
		t.Fatalf("steps: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(got))
	}
	if got[0].Kind != model.StepText || got[0].Text != "Hello {name}" {
		t.Errorf("step 0 = %+v", got[0])
	}
	if got[1].Delay != 60 || len(got[1].Buttons) != 1 || got[1].Buttons[0][0].Action != "book:{profile_id}" {
		t.Errorf("step 1 = %+v", got[1])
	}
}

func TestCampaignStepsEmptyWithoutOverride(t *testing.T) {
	cs := setupCampaignTestDB(t)

	if err := cs.Ensure("other", "Other", 24, 100); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	got, err := cs.Steps("other")
	if err != nil {
		t.Fatalf("steps: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no steps, got %d", len(got))
	}
}

func TestCampaignReplaceStepsSwapsAll(t *testing.T) {
	cs := setupCampaignTestDB(t)

	if err := cs.Ensure("price", "Price", 24, 100); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := cs.ReplaceSteps("price", []model.CampaignStep{
		{Kind: model.StepText, Text: "one"},
		{Kind: model.StepText, Text: "two"},
	}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := cs.ReplaceSteps("price", []model.CampaignStep{
		{Kind: model.StepText, Text: "only"},
	}); err != nil {
		t.Fatalf("replace again: %v", err)
	}

	got, _ := cs.Steps("price")
	if len(got) != 1 || got[0].Text != "only" {
		t.Errorf("steps = %+v", got)
	}
}
