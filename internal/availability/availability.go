// Package availability slices raw calendar windows into bookable sessions of
// a fixed duration, and derives the stable slot keys the watchers diff on.
package availability

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mirelabs/velora/internal/model"
)

// StepMinutes picks the cursor stride for slicing: short base steps keep the
// half-hour grid, anything longer snaps to whole hours.
func StepMinutes(base int) int {
	if base > 0 && base <= 30 {
		return 30
	}
	return 60
}

// parseClock converts "HH:MM" to minutes after midnight. Malformed values
// report ok=false and the window they came from is skipped.
func parseClock(s string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func formatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// BuildSessions slides a cursor through each open window and emits every
// placement of durationMin that fits entirely inside it. A window whose end
// does not land after its start is treated as running to midnight. Duplicate
// placements from overlapping windows collapse to one; the result is sorted
// by start time.
func BuildSessions(date string, windows []model.Window, durationMin, stepMin int) []model.Session {
	if durationMin <= 0 {
		return nil
	}
	if stepMin <= 0 {
		stepMin = 60
	}

	seen := make(map[string]struct{})
	var sessions []model.Session
	for _, w := range windows {
		if w.Available != nil && !*w.Available {
			continue
		}
		start, ok := parseClock(w.Start)
		if !ok {
			continue
		}
		end, ok := parseClock(w.End)
		if !ok {
			continue
		}
		if end <= start {
			end = 24 * 60
		}
		for cur := start; cur+durationMin <= end; cur += stepMin {
			s := formatClock(cur)
			e := formatClock(cur + durationMin)
			key := s + "|" + e
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			sessions = append(sessions, model.Session{
				Date:  date,
				Start: s,
				End:   e,
				Label: s + " - " + e,
			})
		}
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Start < sessions[j].Start })
	return sessions
}

// BuildCalendarSessions runs BuildSessions over every day with at least one
// session, keyed by date.
func BuildCalendarSessions(calendar []model.CalendarDay, durationMin, stepMin int) map[string][]model.Session {
	out := make(map[string][]model.Session)
	for _, day := range calendar {
		sessions := BuildSessions(day.Date, day.Slots, durationMin, stepMin)
		if len(sessions) > 0 {
			out[day.Date] = sessions
		}
	}
	return out
}

// SlotKeys flattens a calendar into sorted "date|start|end" keys for open
// windows that have not started yet. The keys are what subscription
// baselines store and what the watchers diff.
func SlotKeys(calendar []model.CalendarDay, now time.Time) []string {
	today := now.Format("2006-01-02")
	clock := now.Format("15:04")
	seen := make(map[string]struct{})
	var keys []string
	for _, day := range calendar {
		if day.Date < today {
			continue
		}
		for _, w := range day.Slots {
			if w.Available != nil && !*w.Available {
				continue
			}
			if day.Date == today && w.Start < clock {
				continue
			}
			key := day.Date + "|" + w.Start + "|" + w.End
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Diff returns the keys in current that are absent from known, preserving
// current's order.
func Diff(current, known []string) []string {
	knownSet := make(map[string]struct{}, len(known))
	for _, k := range known {
		knownSet[k] = struct{}{}
	}
	var fresh []string
	for _, k := range current {
		if _, ok := knownSet[k]; !ok {
			fresh = append(fresh, k)
		}
	}
	return fresh
}

// HumanizeKey renders a "date|start|end" key as "dd.mm start - end". Keys
// that do not parse come back unchanged.
func HumanizeKey(key string) string {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) != 3 {
		return key
	}
	d, err := time.Parse("2006-01-02", parts[0])
	if err != nil {
		return key
	}
	return fmt.Sprintf("%02d.%02d %s - %s", d.Day(), int(d.Month()), parts[1], parts[2])
}
