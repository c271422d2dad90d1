// Package campaign runs named, ordered, delayed message sequences with
// cooldown throttling. The same engine drives sales funnels, booking
// follow-ups and the post-purchase thank-you.
package campaign

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mirelabs/velora/internal/model"
)

// Store reads campaign definitions and their operator overrides.
type Store interface {
	Get(name string) (*model.Campaign, error)
	Steps(name string) ([]model.CampaignStep, error)
	Ensure(name, title string, cooldownHours int, now int64) error
	ReplaceSteps(name string, steps []model.CampaignStep) error
}

// LogStore is the append-only send ledger used for throttling.
type LogStore interface {
	Append(e model.CampaignLogEntry) error
	SentSince(chatID int64, campaign string, cutoff int64) (bool, error)
	SentPayloadSince(chatID int64, campaign, payloadHash string, cutoff int64) (bool, error)
}

// Sender delivers rendered steps.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, buttons [][]model.Button) error
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, buttons [][]model.Button) error
}

// Trigger is one request to run a campaign for a recipient. PayloadHash, when
// set, narrows throttling to that payload so distinct subjects cooldown
// independently.
type Trigger struct {
	ChatID      int64
	Campaign    string
	Reason      string
	ProfileID   int64
	PayloadHash string
	Context     map[string]string
}

type Runner struct {
	store           Store
	log             LogStore
	sender          Sender
	logger          *slog.Logger
	defaultCooldown time.Duration

	// Overridable in tests.
	now   func() int64
	sleep func(ctx context.Context, d time.Duration) error

	wg sync.WaitGroup
}

func NewRunner(store Store, logStore LogStore, sender Sender, logger *slog.Logger, defaultCooldown time.Duration) *Runner {
	if defaultCooldown <= 0 {
		defaultCooldown = 24 * time.Hour
	}
	return &Runner{
		store:           store,
		log:             logStore,
		sender:          sender,
		logger:          logger,
		defaultCooldown: defaultCooldown,
		now:             func() int64 { return time.Now().Unix() },
		sleep:           sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SeedDefaults materializes a row and the default step sequence for every
// built-in campaign so operators can toggle and edit them. Existing rows and
// any operator-edited steps are left untouched.
func (r *Runner) SeedDefaults() error {
	now := r.now()
	for _, def := range Defaults {
		if err := r.store.Ensure(def.Name, def.Title, def.CooldownHours, now); err != nil {
			return err
		}
		steps, err := r.store.Steps(def.Name)
		if err != nil {
			return err
		}
		if len(steps) == 0 {
			if err := r.store.ReplaceSteps(def.Name, def.Steps); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolve decides what actually runs: operator step overrides win, then the
// built-in definition. A row that exists but is disabled resolves to nothing.
func (r *Runner) resolve(name string) ([]model.CampaignStep, time.Duration, error) {
	cooldown := r.defaultCooldown
	if def, ok := Defaults[name]; ok && def.CooldownHours > 0 {
		cooldown = time.Duration(def.CooldownHours) * time.Hour
	}

	row, err := r.store.Get(name)
	if err != nil {
		return nil, 0, err
	}
	if row != nil {
		if !row.Enabled {
			return nil, cooldown, nil
		}
		if row.CooldownHours > 0 {
			cooldown = time.Duration(row.CooldownHours) * time.Hour
		}
		steps, err := r.store.Steps(name)
		if err != nil {
			return nil, 0, err
		}
		if len(steps) > 0 {
			return steps, cooldown, nil
		}
	}

	if def, ok := Defaults[name]; ok {
		return def.Steps, cooldown, nil
	}
	return nil, cooldown, nil
}

// Trigger starts the campaign for the recipient unless throttled or
// disabled. The step sequence runs detached; the return value reports only
// whether a run started.
func (r *Runner) Trigger(ctx context.Context, trig Trigger) (bool, error) {
	steps, cooldown, err := r.resolve(trig.Campaign)
	if err != nil {
		return false, err
	}
	if len(steps) == 0 {
		r.logger.Debug("campaign empty or disabled", "campaign", trig.Campaign)
		return false, nil
	}

	cutoff := r.now() - int64(cooldown.Seconds())
	var sent bool
	if trig.PayloadHash != "" {
		sent, err = r.log.SentPayloadSince(trig.ChatID, trig.Campaign, trig.PayloadHash, cutoff)
	} else {
		sent, err = r.log.SentSince(trig.ChatID, trig.Campaign, cutoff)
	}
	if err != nil {
		return false, err
	}
	if sent {
		r.logger.Debug("campaign throttled",
			"campaign", trig.Campaign, "chat_id", trig.ChatID, "payload", trig.PayloadHash)
		return false, nil
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx, trig, steps)
	}()
	return true, nil
}

// Wait blocks until all in-flight campaign runs finish. Used on shutdown and
// in tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, trig Trigger, steps []model.CampaignStep) {
	for i, step := range steps {
		if err := r.sleep(ctx, time.Duration(step.Delay)*time.Second); err != nil {
			return
		}
		if err := r.send(ctx, trig, step); err != nil {
			r.logger.Warn("campaign step send failed",
				"campaign", trig.Campaign, "chat_id", trig.ChatID, "step", i, "error", err)
		}
		// The log row is written even for failed sends: the throttle window
		// starts at the attempt, not at delivery.
		if err := r.log.Append(model.CampaignLogEntry{
			ChatID:      trig.ChatID,
			Campaign:    trig.Campaign,
			StepIdx:     i,
			Reason:      trig.Reason,
			ProfileID:   trig.ProfileID,
			PayloadHash: trig.PayloadHash,
			SentAt:      r.now(),
		}); err != nil {
			r.logger.Error("campaign log append failed",
				"campaign", trig.Campaign, "chat_id", trig.ChatID, "step", i, "error", err)
		}
	}
}

func (r *Runner) send(ctx context.Context, trig Trigger, step model.CampaignStep) error {
	buttons := r.renderButtons(trig, step.Buttons)

	switch step.Kind {
	case model.StepPhoto:
		caption, err := RenderHTML(step.Caption, trig.Context)
		if err != nil {
			r.logger.Warn("campaign caption render failed", "campaign", trig.Campaign, "error", err)
		}
		image, err := RenderRaw(step.Image, trig.Context)
		if err != nil {
			r.logger.Warn("campaign image render failed", "campaign", trig.Campaign, "error", err)
		}
		return r.sender.SendPhoto(ctx, trig.ChatID, image, caption, buttons)
	default:
		text, err := RenderHTML(step.Text, trig.Context)
		if err != nil {
			r.logger.Warn("campaign text render failed", "campaign", trig.Campaign, "error", err)
		}
		return r.sender.SendMessage(ctx, trig.ChatID, text, buttons)
	}
}

func (r *Runner) renderButtons(trig Trigger, rows [][]model.Button) [][]model.Button {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]model.Button, 0, len(rows))
	for _, row := range rows {
		var onew []model.Button
		for _, b := range row {
			// Button labels are plain text, no HTML parse mode applies.
			text, err := RenderRaw(b.Text, trig.Context)
			if err != nil {
				r.logger.Warn("campaign button render failed", "campaign", trig.Campaign, "error", err)
			}
			url, _ := RenderRaw(b.URL, trig.Context)
			action, _ := RenderRaw(b.Action, trig.Context)
			onew = append(onew, model.Button{Text: text, URL: url, Action: action})
		}
		out = append(out, onew)
	}
	return out
}
