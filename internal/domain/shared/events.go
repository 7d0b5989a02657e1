package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Events are published after the owning transaction
// commits; handlers never run inside it.
const (
	EventXPChanged           EventType = "ledger.xp_changed"
	EventCheckinPerformed    EventType = "checkin.performed"
	EventLessonWatched       EventType = "progress.lesson_watched"
	EventCustomItemToggled   EventType = "progress.custom_item_toggled"
	EventSubmissionSubmitted EventType = "submission.submitted"
	EventSubmissionReviewed  EventType = "submission.reviewed"
	EventBadgeAwarded        EventType = "badge.awarded"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func (e BaseEvent) EventType() EventType  { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) AggregateID() string   { return e.AggregateId }

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Ledger Events
// ═══════════════════════════════════════════════════════════════════════════

// XPChangedEvent is emitted after every committed XP credit or debit.
type XPChangedEvent struct {
	BaseEvent
	Source       string `json:"source"`
	AppliedDelta int    `json:"applied_delta"`
	NewTotal     int    `json:"new_total"`
	RelatedID    string `json:"related_id,omitempty"`
}

func (e XPChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"source":        e.Source,
		"applied_delta": e.AppliedDelta,
		"new_total":     e.NewTotal,
		"related_id":    e.RelatedID,
	}
}

// NewXPChangedEvent creates a new XPChangedEvent.
func NewXPChangedEvent(learnerID, source string, applied, newTotal int, relatedID string) XPChangedEvent {
	return XPChangedEvent{
		BaseEvent:    NewBaseEvent(EventXPChanged, learnerID),
		Source:       source,
		AppliedDelta: applied,
		NewTotal:     newTotal,
		RelatedID:    relatedID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Fact Events
// ═══════════════════════════════════════════════════════════════════════════

// CheckinPerformedEvent is emitted only for successful check-ins.
type CheckinPerformedEvent struct {
	BaseEvent
	Track      string `json:"track"`
	Date       string `json:"date"`
	StreakDays int    `json:"streak_days"`
}

func (e CheckinPerformedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"track":       e.Track,
		"date":        e.Date,
		"streak_days": e.StreakDays,
	}
}

func NewCheckinPerformedEvent(learnerID, track, date string, streak int) CheckinPerformedEvent {
	return CheckinPerformedEvent{
		BaseEvent:  NewBaseEvent(EventCheckinPerformed, learnerID),
		Track:      track,
		Date:       date,
		StreakDays: streak,
	}
}

// LessonWatchedEvent is emitted when a lesson completion fact is upserted.
type LessonWatchedEvent struct {
	BaseEvent
	LessonID string `json:"lesson_id"`
	Watched  bool   `json:"watched"`
}

func (e LessonWatchedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"lesson_id": e.LessonID, "watched": e.Watched}
}

func NewLessonWatchedEvent(learnerID, lessonID string, watched bool) LessonWatchedEvent {
	return LessonWatchedEvent{
		BaseEvent: NewBaseEvent(EventLessonWatched, learnerID),
		LessonID:  lessonID,
		Watched:   watched,
	}
}

// CustomItemToggledEvent is emitted when a custom lesson or task changes state.
type CustomItemToggledEvent struct {
	BaseEvent
	ItemID    string `json:"item_id"`
	Kind      string `json:"kind"`
	Completed bool   `json:"completed"`
}

func (e CustomItemToggledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"item_id": e.ItemID, "kind": e.Kind, "completed": e.Completed}
}

func NewCustomItemToggledEvent(learnerID, itemID, kind string, completed bool) CustomItemToggledEvent {
	return CustomItemToggledEvent{
		BaseEvent: NewBaseEvent(EventCustomItemToggled, learnerID),
		ItemID:    itemID,
		Kind:      kind,
		Completed: completed,
	}
}

// SubmissionEvent covers both submitted and reviewed transitions.
type SubmissionEvent struct {
	BaseEvent
	SubmissionID string `json:"submission_id"`
	TaskID       string `json:"task_id"`
	Status       string `json:"status"`
	XPGranted    int    `json:"xp_granted"`
}

func (e SubmissionEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"submission_id": e.SubmissionID,
		"task_id":       e.TaskID,
		"status":        e.Status,
		"xp_granted":    e.XPGranted,
	}
}

func NewSubmissionEvent(t EventType, learnerID, submissionID, taskID, status string, xp int) SubmissionEvent {
	return SubmissionEvent{
		BaseEvent:    NewBaseEvent(t, learnerID),
		SubmissionID: submissionID,
		TaskID:       taskID,
		Status:       status,
		XPGranted:    xp,
	}
}

// BadgeAwardedEvent is emitted once per newly held badge.
type BadgeAwardedEvent struct {
	BaseEvent
	BadgeID   string `json:"badge_id"`
	BadgeName string `json:"badge_name"`
}

func (e BadgeAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"badge_id": e.BadgeID, "badge_name": e.BadgeName}
}

func NewBadgeAwardedEvent(learnerID, badgeID, name string) BadgeAwardedEvent {
	return BadgeAwardedEvent{
		BaseEvent: NewBaseEvent(EventBadgeAwarded, learnerID),
		BadgeID:   badgeID,
		BadgeName: name,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) error { return nil }
