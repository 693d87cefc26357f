package core

import (
	"sort"
	"time"
)

// Recent-event log bounds.
const (
	MaxRecentEvents   = 12
	EventPreviewChars = 240
)

// StageEvent is a short preview of a completed stage, kept for UI timelines.
type StageEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	Section   StageID     `json:"section"`
	Status    StageStatus `json:"status"`
	Preview   string      `json:"preview"`
}

// NewStageEvent builds a StageEvent whose preview holds at most
// EventPreviewChars runes of text.
func NewStageEvent(section StageID, status StageStatus, text string, ts time.Time) StageEvent {
	preview := []rune(text)
	if len(preview) > EventPreviewChars {
		preview = preview[:EventPreviewChars]
	}

	return StageEvent{Timestamp: ts, Section: section, Status: status, Preview: string(preview)}
}

// LaunchPlan is the assembled result of one request. It is only constructed
// once every stage has reached a terminal status.
type LaunchPlan struct {
	RequestID      string                  `json:"request_id"`
	ProductName    string                  `json:"product_name"`
	ProductDetails string                  `json:"product_details"`
	TargetMarket   string                  `json:"target_market"`
	Sections       map[StageID]string      `json:"sections"`
	Results        map[StageID]StageResult `json:"results"`
	RecentEvents   []StageEvent            `json:"recent_events,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
}

// Section returns the final text of stage id.
func (p *LaunchPlan) Section(id StageID) string {
	return p.Sections[id]
}

// OrderedStages returns the plan's stage ids in canonical order.
func (p *LaunchPlan) OrderedStages() []StageID {
	ids := make([]StageID, 0, len(p.Sections))
	for id := range p.Sections {
		ids = append(ids, id)
	}

	SortStages(ids)

	return ids
}

// SortStages orders ids canonically; unknown ids follow, sorted by name.
func SortStages(ids []StageID) {
	sort.Slice(ids, func(i, j int) bool {
		oi, oj := ids[i].Order(), ids[j].Order()
		if oi != oj {
			return oi < oj
		}

		return ids[i] < ids[j]
	})
}
