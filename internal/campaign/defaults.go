package campaign

import "github.com/mirelabs/velora/internal/model"

// Definition bundles a campaign's metadata with its built-in steps. The
// database can override both; these are what a fresh install runs with.
type Definition struct {
	Name          string
	Title         string
	CooldownHours int
	Steps         []model.CampaignStep
}

// Campaign names. Funnel follow-ups use the visitor's stated reason; the
// rest are triggered by behavior.
const (
	Price           = "price"
	JustBrowsing    = "just_browsing"
	NoMatch         = "no_match"
	Schedule        = "schedule"
	Other           = "other"
	ProfileInterest = "profile_interest"
	SlotsFollowup   = "slots_followup"
	PostPurchase    = "post_purchase"
)

// Defaults is the built-in campaign catalog, keyed by name.
var Defaults = map[string]Definition{
	Price: {
		Name: Price, Title: "Price objection follow-up", CooldownHours: 24,
		Steps: []model.CampaignStep{
			{Kind: model.StepText, Delay: 0,
				Text: "Totally understand, {name}. Prices depend on the plan and the length of the meeting, and shorter bookings start lower than most people expect."},
			{Kind: model.StepText, Delay: 3600,
				Text: "By the way, a one-hour booking is often enough for a first meeting. Want me to show who is free this week?",
				Buttons: [][]model.Button{{{Text: "Show availability", Action: "browse"}}}},
		},
	},
	JustBrowsing: {
		Name: JustBrowsing, Title: "Browsing nudge", CooldownHours: 24,
		Steps: []model.CampaignStep{
			{Kind: model.StepText, Delay: 0,
				Text: "No rush at all. I'll be here when you want a hand picking someone."},
			{Kind: model.StepText, Delay: 7200,
				Text: "A few new profiles went up recently. Take a look whenever you like.",
				Buttons: [][]model.Button{{{Text: "Browse profiles", Action: "browse"}}}},
		},
	},
	NoMatch: {
		Name: NoMatch, Title: "No match recovery", CooldownHours: 24,
		Steps: []model.CampaignStep{
			{Kind: model.StepText, Delay: 0,
				Text: "Tell me roughly what you're looking for and I'll suggest a couple of options. The catalog updates often."},
		},
	},
	Schedule: {
		Name: Schedule, Title: "Scheduling help", CooldownHours: 24,
		Steps: []model.CampaignStep{
			{Kind: model.StepText, Delay: 0,
				Text: "Evenings and weekends fill up first. I can alert you the moment a new window opens for anyone you like."},
			{Kind: model.StepText, Delay: 3600,
				Text: "Want me to watch availability for a particular profile? Open one and tap the bell.",
				Buttons: [][]model.Button{{{Text: "Browse profiles", Action: "browse"}}}},
		},
	},
	Other: {
		Name: Other, Title: "General follow-up", CooldownHours: 24,
		Steps: []model.CampaignStep{
			{Kind: model.StepText, Delay: 0,
				Text: "Got it. If any question comes up, just type it here and I'll answer."},
		},
	},
	ProfileInterest: {
		Name: ProfileInterest, Title: "Viewed profile follow-up", CooldownHours: 24,
		Steps: []model.CampaignStep{
			{Kind: model.StepText, Delay: 1800,
				Text: "Still thinking about {profile_name}? Her calendar moves fast, so it's worth holding a time you like.",
				Buttons: [][]model.Button{{{Text: "Book {profile_name}", Action: "checkout:{profile_id}"}}}},
		},
	},
	SlotsFollowup: {
		Name: SlotsFollowup, Title: "Slot list follow-up", CooldownHours: 24,
		Steps: []model.CampaignStep{
			{Kind: model.StepText, Delay: 0,
				Text: "You were just looking at {profile_name}'s times. Should I hold one of them for you?",
				Buttons: [][]model.Button{{{Text: "Pick a time", Action: "checkout:{profile_id}"}}}},
		},
	},
	PostPurchase: {
		Name: PostPurchase, Title: "Post-purchase thank you", CooldownHours: 24,
		Steps: []model.CampaignStep{
			{Kind: model.StepText, Delay: 0,
				Text: "Payment received, thank you! Your booking with {profile_name} is confirmed. You'll get a reminder before the meeting."},
			{Kind: model.StepText, Delay: 60,
				Text: "A small thank-you: {discount_pct}% off your next booking, valid for 24 hours. It applies automatically at checkout."},
		},
	},
}
