package campaign

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/mirelabs/velora/internal/model"
)

type fakeStore struct {
	rows  map[string]*model.Campaign
	steps map[string][]model.CampaignStep
}

func (f *fakeStore) Get(name string) (*model.Campaign, error) {
	return f.rows[name], nil
}

func (f *fakeStore) Steps(name string) ([]model.CampaignStep, error) {
	return f.steps[name], nil
}

func (f *fakeStore) ReplaceSteps(name string, steps []model.CampaignStep) error {
	if f.steps == nil {
		f.steps = make(map[string][]model.CampaignStep)
	}
	f.steps[name] = steps
	return nil
}

func (f *fakeStore) Ensure(name, title string, cooldownHours int, now int64) error {
	if f.rows == nil {
		f.rows = make(map[string]*model.Campaign)
	}
	if _, ok := f.rows[name]; !ok {
		f.rows[name] = &model.Campaign{Name: name, Title: title, Enabled: true, CooldownHours: cooldownHours}
	}
	return nil
}

type fakeLog struct {
	mu      sync.Mutex
	entries []model.CampaignLogEntry
}

func (f *fakeLog) Append(e model.CampaignLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeLog) SentSince(chatID int64, campaign string, cutoff int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.ChatID == chatID && e.Campaign == campaign && e.StepIdx == 0 && e.SentAt >= cutoff {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLog) SentPayloadSince(chatID int64, campaign, hash string, cutoff int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.ChatID == chatID && e.Campaign == campaign && e.PayloadHash == hash && e.StepIdx == 0 && e.SentAt >= cutoff {
			return true, nil
		}
	}
	return false, nil
}

type sentMessage struct {
	chatID  int64
	text    string
	buttons [][]model.Button
}

type fakeSender struct {
	mu       sync.Mutex
	messages []sentMessage
	fail     bool
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID int64, text string, buttons [][]model.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sentMessage{chatID, text, buttons})
	if f.fail {
		return context.DeadlineExceeded
	}
	return nil
}

func (f *fakeSender) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, buttons [][]model.Button) error {
	return f.SendMessage(ctx, chatID, caption, buttons)
}

func newTestRunner(store *fakeStore, log *fakeLog, sender *fakeSender) *Runner {
	r := NewRunner(store, log, sender, slog.Default(), 24*time.Hour)
	r.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return r
}

func TestTriggerRunsDefaultSteps(t *testing.T) {
	store := &fakeStore{}
	log := &fakeLog{}
	sender := &fakeSender{}
	r := newTestRunner(store, log, sender)

	fired, err := r.Trigger(context.Background(), Trigger{
		ChatID: 42, Campaign: Price, Reason: "funnel",
		Context: map[string]string{"name": "Bob"},
	})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if !fired {
		t.Fatal("expected campaign to fire")
	}
	r.Wait()

	want := len(Defaults[Price].Steps)
	if len(sender.messages) != want {
		t.Fatalf("sent %d messages, want %d", len(sender.messages), want)
	}
	if len(log.entries) != want {
		t.Fatalf("logged %d entries, want %d", len(log.entries), want)
	}
	if log.entries[0].StepIdx != 0 || log.entries[1].StepIdx != 1 {
		t.Errorf("step indexes = %d, %d", log.entries[0].StepIdx, log.entries[1].StepIdx)
	}
}

func TestSeedDefaultsWritesSteps(t *testing.T) {
	store := &fakeStore{}
	r := newTestRunner(store, &fakeLog{}, &fakeSender{})

	if err := r.SeedDefaults(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	for name, def := range Defaults {
		if !reflect.DeepEqual(store.steps[name], def.Steps) {
			t.Errorf("steps for %q = %v, want %v", name, store.steps[name], def.Steps)
		}
	}
}

func TestSeedDefaultsKeepsEditedSteps(t *testing.T) {
	edited := []model.CampaignStep{{Kind: "message", Delay: 300, Text: "operator copy"}}
	store := &fakeStore{steps: map[string][]model.CampaignStep{Price: edited}}
	r := newTestRunner(store, &fakeLog{}, &fakeSender{})

	if err := r.SeedDefaults(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !reflect.DeepEqual(store.steps[Price], edited) {
		t.Errorf("steps = %v, want operator edits preserved", store.steps[Price])
	}
}

func TestTriggerThrottled(t *testing.T) {
	store := &fakeStore{}
	log := &fakeLog{}
	sender := &fakeSender{}
	r := newTestRunner(store, log, sender)

	t0 := int64(1_000_000)
	r.now = func() int64 { return t0 }
	if _, err := r.Trigger(context.Background(), Trigger{ChatID: 1, Campaign: Other}); err != nil {
		t.Fatalf("first trigger: %v", err)
	}
	r.Wait()

	// One hour later: inside the 24h cooldown.
	r.now = func() int64 { return t0 + 3600 }
	fired, err := r.Trigger(context.Background(), Trigger{ChatID: 1, Campaign: Other})
	if err != nil {
		t.Fatalf("second trigger: %v", err)
	}
	if fired {
		t.Error("trigger at t0+1h should be suppressed")
	}

	// 25 hours later: past the cooldown.
	r.now = func() int64 { return t0 + 25*3600 }
	fired, err = r.Trigger(context.Background(), Trigger{ChatID: 1, Campaign: Other})
	if err != nil {
		t.Fatalf("third trigger: %v", err)
	}
	if !fired {
		t.Error("trigger at t0+25h should fire")
	}
	r.Wait()
}

func TestTriggerDisabledCampaignSilent(t *testing.T) {
	store := &fakeStore{rows: map[string]*model.Campaign{
		Price: {Name: Price, Enabled: false},
	}}
	r := newTestRunner(store, &fakeLog{}, &fakeSender{})

	fired, err := r.Trigger(context.Background(), Trigger{ChatID: 1, Campaign: Price})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if fired {
		t.Error("disabled campaign must not fire")
	}
}

func TestTriggerDBStepsOverrideDefaults(t *testing.T) {
	store := &fakeStore{
		rows: map[string]*model.Campaign{
			Price: {Name: Price, Enabled: true, CooldownHours: 24},
		},
		steps: map[string][]model.CampaignStep{
			Price: {{Kind: model.StepText, Text: "custom step"}},
		},
	}
	sender := &fakeSender{}
	r := newTestRunner(store, &fakeLog{}, sender)

	fired, err := r.Trigger(context.Background(), Trigger{ChatID: 1, Campaign: Price})
	if err != nil || !fired {
		t.Fatalf("trigger = %v, %v", fired, err)
	}
	r.Wait()

	if len(sender.messages) != 1 || sender.messages[0].text != "custom step" {
		t.Errorf("messages = %+v", sender.messages)
	}
}

func TestTriggerEnabledRowWithoutStepsUsesDefaults(t *testing.T) {
	store := &fakeStore{rows: map[string]*model.Campaign{
		Other: {Name: Other, Enabled: true},
	}}
	sender := &fakeSender{}
	r := newTestRunner(store, &fakeLog{}, sender)

	fired, err := r.Trigger(context.Background(), Trigger{ChatID: 1, Campaign: Other})
	if err != nil || !fired {
		t.Fatalf("trigger = %v, %v", fired, err)
	}
	r.Wait()
	if len(sender.messages) != len(Defaults[Other].Steps) {
		t.Errorf("sent %d messages", len(sender.messages))
	}
}

func TestTriggerUnknownCampaign(t *testing.T) {
	r := newTestRunner(&fakeStore{}, &fakeLog{}, &fakeSender{})
	fired, err := r.Trigger(context.Background(), Trigger{ChatID: 1, Campaign: "nonexistent"})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if fired {
		t.Error("unknown campaign must not fire")
	}
}

func TestFailedSendStillLogged(t *testing.T) {
	store := &fakeStore{}
	log := &fakeLog{}
	sender := &fakeSender{fail: true}
	r := newTestRunner(store, log, sender)

	fired, err := r.Trigger(context.Background(), Trigger{ChatID: 1, Campaign: Other})
	if err != nil || !fired {
		t.Fatalf("trigger = %v, %v", fired, err)
	}
	r.Wait()

	if len(log.entries) != len(Defaults[Other].Steps) {
		t.Errorf("logged %d entries despite send failure, want %d", len(log.entries), len(Defaults[Other].Steps))
	}
}

func TestPayloadHashIsolation(t *testing.T) {
	store := &fakeStore{}
	log := &fakeLog{}
	sender := &fakeSender{}
	r := newTestRunner(store, log, sender)

	fired, err := r.Trigger(context.Background(), Trigger{
		ChatID: 1, Campaign: SlotsFollowup, PayloadHash: "timesall:7:100",
		Context: map[string]string{"profile_name": "Alice", "profile_id": "7"},
	})
	if err != nil || !fired {
		t.Fatalf("trigger = %v, %v", fired, err)
	}
	r.Wait()

	// Same payload suppressed, different payload fires.
	fired, _ = r.Trigger(context.Background(), Trigger{
		ChatID: 1, Campaign: SlotsFollowup, PayloadHash: "timesall:7:100",
		Context: map[string]string{"profile_name": "Alice", "profile_id": "7"},
	})
	if fired {
		t.Error("same payload should be throttled")
	}
	fired, _ = r.Trigger(context.Background(), Trigger{
		ChatID: 1, Campaign: SlotsFollowup, PayloadHash: "timesall:9:100",
		Context: map[string]string{"profile_name": "Bella", "profile_id": "9"},
	})
	if !fired {
		t.Error("different payload should fire")
	}
	r.Wait()
}

func TestButtonsRendered(t *testing.T) {
	store := &fakeStore{}
	sender := &fakeSender{}
	r := newTestRunner(store, &fakeLog{}, sender)

	fired, err := r.Trigger(context.Background(), Trigger{
		ChatID: 1, Campaign: ProfileInterest, ProfileID: 7,
		Context: map[string]string{"profile_name": "Alice", "profile_id": "7"},
	})
	if err != nil || !fired {
		t.Fatalf("trigger = %v, %v", fired, err)
	}
	r.Wait()

	if len(sender.messages) != 1 {
		t.Fatalf("messages = %d", len(sender.messages))
	}
	btn := sender.messages[0].buttons[0][0]
	if btn.Text != "Book Alice" || btn.Action != "checkout:7" {
		t.Errorf("button = %+v", btn)
	}
}
