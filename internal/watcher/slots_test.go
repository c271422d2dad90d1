package watcher

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/mirelabs/velora/internal/catalog"
	"github.com/mirelabs/velora/internal/model"
)

type memSubs struct {
	subs []model.SlotSubscription
}

func (m *memSubs) ListAll() ([]model.SlotSubscription, error) {
	return m.subs, nil
}

func (m *memSubs) SetKnown(chatID, profileID int64, known []string, notifiedAt int64) error {
	for i := range m.subs {
		if m.subs[i].ChatID == chatID && m.subs[i].ProfileID == profileID {
			m.subs[i].KnownSlots = known
			if notifiedAt > 0 {
				m.subs[i].LastNotifiedAt = notifiedAt
			}
		}
	}
	return nil
}

type memChannel struct {
	states map[int64]*model.ChannelState
}

func newMemChannel() *memChannel {
	return &memChannel{states: make(map[int64]*model.ChannelState)}
}

func (m *memChannel) Get(profileID int64) (*model.ChannelState, error) {
	st, ok := m.states[profileID]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (m *memChannel) Save(profileID int64, known []string, postedAt int64) error {
	st, ok := m.states[profileID]
	if !ok {
		st = &model.ChannelState{ProfileID: profileID}
		m.states[profileID] = st
	}
	st.KnownSlots = known
	if postedAt > 0 {
		st.LastPostedAt = postedAt
	}
	return nil
}

type fixedProfiles struct {
	profiles []catalog.Profile
}

func (f *fixedProfiles) Profiles(ctx context.Context) ([]catalog.Profile, error) {
	return f.profiles, nil
}

func (f *fixedProfiles) ByID(ctx context.Context, id int64) (*catalog.Profile, error) {
	for i := range f.profiles {
		if f.profiles[i].ID == id {
			return &f.profiles[i], nil
		}
	}
	return nil, nil
}

type fixedSlots struct {
	calendar []model.CalendarDay
}

func (f *fixedSlots) Slots(ctx context.Context, workerID int64, days int) ([]model.CalendarDay, error) {
	return f.calendar, nil
}

type capturedMessage struct {
	chatID int64
	text   string
}

type captureSender struct {
	messages []capturedMessage
}

func (c *captureSender) SendMessage(ctx context.Context, chatID int64, text string, buttons [][]model.Button) error {
	c.messages = append(c.messages, capturedMessage{chatID, text})
	return nil
}

func calendarFor(keys ...[3]string) []model.CalendarDay {
	byDate := make(map[string]*model.CalendarDay)
	var out []model.CalendarDay
	for _, k := range keys {
		day, ok := byDate[k[0]]
		if !ok {
			out = append(out, model.CalendarDay{Date: k[0]})
			day = &out[len(out)-1]
			byDate[k[0]] = day
		}
		day.Slots = append(day.Slots, model.Window{Start: k[1], End: k[2]})
	}
	return out
}

// watchNow is 2026-09-01T00:00:00Z, the day before every test calendar.
const watchNow = int64(1788220800)

func newTestSlots(subs *memSubs, channel *memChannel, profiles *fixedProfiles, slots *fixedSlots, sender *captureSender, channelID int64) *Slots {
	w := NewSlots(subs, channel, profiles, slots, sender, slog.Default(), channelID)
	w.now = func() int64 { return watchNow }
	return w
}

func TestSubscriberDiffAndOverwrite(t *testing.T) {
	// known={A,B}, current={B,C}: notify only C, store {B,C}.
	keyA := "2026-09-02|10:00|12:00"
	keyB := "2026-09-02|12:00|14:00"
	keyC := "2026-09-03|10:00|12:00"

	subs := &memSubs{subs: []model.SlotSubscription{
		{ChatID: 42, ProfileID: 7, KnownSlots: []string{keyA, keyB}},
	}}
	profiles := &fixedProfiles{profiles: []catalog.Profile{{ID: 7, Name: "Alice", WorkerID: 55}}}
	slots := &fixedSlots{calendar: calendarFor(
		[3]string{"2026-09-02", "12:00", "14:00"},
		[3]string{"2026-09-03", "10:00", "12:00"},
	)}
	sender := &captureSender{}
	w := newTestSlots(subs, newMemChannel(), profiles, slots, sender, 0)

	w.TickSubscribers(context.Background())

	if len(sender.messages) != 1 {
		t.Fatalf("messages = %+v", sender.messages)
	}
	msg := sender.messages[0]
	if msg.chatID != 42 {
		t.Errorf("chat id = %d", msg.chatID)
	}
	if !strings.Contains(msg.text, "03.09 10:00 - 12:00") {
		t.Errorf("message should mention the new slot: %q", msg.text)
	}
	if strings.Contains(msg.text, "02.09 10:00") {
		t.Errorf("vanished slot must not be mentioned: %q", msg.text)
	}

	if !reflect.DeepEqual(subs.subs[0].KnownSlots, []string{keyB, keyC}) {
		t.Errorf("stored known = %v", subs.subs[0].KnownSlots)
	}
	if subs.subs[0].LastNotifiedAt != watchNow {
		t.Errorf("last_notified_at = %d", subs.subs[0].LastNotifiedAt)
	}
}

func TestSubscriberQuietPassStillOverwrites(t *testing.T) {
	keyB := "2026-09-02|12:00|14:00"
	subs := &memSubs{subs: []model.SlotSubscription{
		{ChatID: 42, ProfileID: 7, KnownSlots: []string{"2026-09-02|10:00|12:00", keyB}},
	}}
	profiles := &fixedProfiles{profiles: []catalog.Profile{{ID: 7, Name: "Alice", WorkerID: 55}}}
	slots := &fixedSlots{calendar: calendarFor([3]string{"2026-09-02", "12:00", "14:00"})}
	sender := &captureSender{}
	w := newTestSlots(subs, newMemChannel(), profiles, slots, sender, 0)

	w.TickSubscribers(context.Background())

	if len(sender.messages) != 0 {
		t.Errorf("disappearance alone must not notify: %+v", sender.messages)
	}
	if !reflect.DeepEqual(subs.subs[0].KnownSlots, []string{keyB}) {
		t.Errorf("stored known = %v", subs.subs[0].KnownSlots)
	}
}

func TestSubscriberLineCap(t *testing.T) {
	subs := &memSubs{subs: []model.SlotSubscription{{ChatID: 1, ProfileID: 7}}}
	profiles := &fixedProfiles{profiles: []catalog.Profile{{ID: 7, Name: "Alice", WorkerID: 55}}}
	slots := &fixedSlots{calendar: calendarFor(
		[3]string{"2026-09-02", "10:00", "11:00"},
		[3]string{"2026-09-02", "11:00", "12:00"},
		[3]string{"2026-09-02", "12:00", "13:00"},
		[3]string{"2026-09-02", "13:00", "14:00"},
		[3]string{"2026-09-02", "14:00", "15:00"},
	)}
	sender := &captureSender{}
	w := newTestSlots(subs, newMemChannel(), profiles, slots, sender, 0)

	w.TickSubscribers(context.Background())

	if len(sender.messages) != 1 {
		t.Fatalf("messages = %d", len(sender.messages))
	}
	text := sender.messages[0].text
	if got := strings.Count(text, "•"); got != maxSubscriberLines {
		t.Errorf("bullet lines = %d, want %d", got, maxSubscriberLines)
	}
	if !strings.Contains(text, "2 more") {
		t.Errorf("overflow note missing: %q", text)
	}
}

func TestChannelBaselinesFirstSighting(t *testing.T) {
	channel := newMemChannel()
	profiles := &fixedProfiles{profiles: []catalog.Profile{{ID: 7, Name: "Alice", WorkerID: 55}}}
	slots := &fixedSlots{calendar: calendarFor([3]string{"2026-09-02", "10:00", "12:00"})}
	sender := &captureSender{}
	w := newTestSlots(&memSubs{}, channel, profiles, slots, sender, -100)

	w.TickChannel(context.Background())

	if len(sender.messages) != 0 {
		t.Errorf("first sighting must not post: %+v", sender.messages)
	}
	st, _ := channel.Get(7)
	if st == nil || len(st.KnownSlots) != 1 {
		t.Fatalf("baseline = %+v", st)
	}

	// Second pass with a new slot posts only the new one.
	slots.calendar = calendarFor(
		[3]string{"2026-09-02", "10:00", "12:00"},
		[3]string{"2026-09-03", "10:00", "12:00"},
	)
	w.TickChannel(context.Background())

	if len(sender.messages) != 1 {
		t.Fatalf("messages = %+v", sender.messages)
	}
	if sender.messages[0].chatID != -100 {
		t.Errorf("channel chat = %d", sender.messages[0].chatID)
	}
	if !strings.Contains(sender.messages[0].text, "03.09") || strings.Contains(sender.messages[0].text, "02.09") {
		t.Errorf("channel post = %q", sender.messages[0].text)
	}
}

func TestChannelDisabledWithoutChatID(t *testing.T) {
	profiles := &fixedProfiles{profiles: []catalog.Profile{{ID: 7, WorkerID: 55}}}
	slots := &fixedSlots{calendar: calendarFor([3]string{"2026-09-02", "10:00", "12:00"})}
	sender := &captureSender{}
	channel := newMemChannel()
	w := newTestSlots(&memSubs{}, channel, profiles, slots, sender, 0)

	w.TickChannel(context.Background())

	if len(sender.messages) != 0 || len(channel.states) != 0 {
		t.Error("channel watcher should be inert without a chat id")
	}
}
