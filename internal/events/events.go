package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/taxdesk/portal-client/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventBrowse           EventType = "browse"            // A folder view was replaced
	EventCacheInvalidated EventType = "cache_invalidated" // Recursive cache dropped after a mutation
	EventCacheRebuilt     EventType = "cache_rebuilt"     // Recursive cache loaded
	EventArchive          EventType = "archive"           // Archive toggle settled (applied or rolled back)
	EventAssignmentState  EventType = "assignment_state"  // E-sign coordinator changed state
	EventDataIntegrity    EventType = "data_integrity"    // Cycle or dangling reference in folder data
	EventError            EventType = "error"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

func newBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

// BrowseEvent is published after a browse replaced the current view.
type BrowseEvent struct {
	BaseEvent
	FolderID  string // "" for root
	Folders   int
	Documents int
	Partial   string // "", "folders" or "documents": the side that failed
	Cached    bool
}

// CacheEvent reports recursive cache transitions.
type CacheEvent struct {
	BaseEvent
	Reason    string // e.g. "folder_created", "document_deleted"
	Folders   int
	Documents int
}

// ArchiveEvent reports the settled outcome of an archive toggle.
type ArchiveEvent struct {
	BaseEvent
	Key        string // "folder:12" / "document:7"
	Archived   bool   // state after settlement
	RolledBack bool
	Error      error
}

// AssignmentStateEvent represents e-sign coordinator transitions.
type AssignmentStateEvent struct {
	BaseEvent
	DocumentID   int64
	AssignmentID string
	OldState     string
	NewState     string
	Attempt      int
	ErrorMessage string
}

// DataIntegrityEvent reports malformed folder data found while materializing.
type DataIntegrityEvent struct {
	BaseEvent
	FolderID int64
	Kind     string // "cycle" or "dangling"
	Error    error
}

// ErrorEvent represents error conditions
type ErrorEvent struct {
	BaseEvent
	Operation string
	Error     error
	Retryable bool
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // Count of dropped events due to full buffers
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking.
// A nil bus is a no-op so services can run without one.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishAssignmentState is a convenience method for coordinator transitions.
func (eb *EventBus) PublishAssignmentState(documentID int64, assignmentID, oldState, newState string, attempt int, errorMsg string) {
	eb.Publish(&AssignmentStateEvent{
		BaseEvent:    newBase(EventAssignmentState),
		DocumentID:   documentID,
		AssignmentID: assignmentID,
		OldState:     oldState,
		NewState:     newState,
		Attempt:      attempt,
		ErrorMessage: errorMsg,
	})
}

// PublishBrowse is a convenience method for installed folder views.
func (eb *EventBus) PublishBrowse(folderID string, folders, documents int, partial string, cached bool) {
	eb.Publish(&BrowseEvent{
		BaseEvent: newBase(EventBrowse),
		FolderID:  folderID,
		Folders:   folders,
		Documents: documents,
		Partial:   partial,
		Cached:    cached,
	})
}

// PublishArchive is a convenience method for settled archive toggles.
func (eb *EventBus) PublishArchive(key string, archived, rolledBack bool, err error) {
	eb.Publish(&ArchiveEvent{
		BaseEvent:  newBase(EventArchive),
		Key:        key,
		Archived:   archived,
		RolledBack: rolledBack,
		Error:      err,
	})
}

// PublishDataIntegrity is a convenience method for malformed folder data.
func (eb *EventBus) PublishDataIntegrity(folderID int64, kind string, err error) {
	eb.Publish(&DataIntegrityEvent{
		BaseEvent: newBase(EventDataIntegrity),
		FolderID:  folderID,
		Kind:      kind,
		Error:     err,
	})
}

// PublishCacheInvalidated is a convenience method for cache drops.
func (eb *EventBus) PublishCacheInvalidated(reason string) {
	eb.Publish(&CacheEvent{
		BaseEvent: newBase(EventCacheInvalidated),
		Reason:    reason,
	})
}

// PublishCacheRebuilt is a convenience method for cache loads.
func (eb *EventBus) PublishCacheRebuilt(folders, documents int) {
	eb.Publish(&CacheEvent{
		BaseEvent: newBase(EventCacheRebuilt),
		Reason:    "load_all",
		Folders:   folders,
		Documents: documents,
	})
}

// PublishError is a convenience method for publishing error events
func (eb *EventBus) PublishError(operation string, err error, retryable bool) {
	eb.Publish(&ErrorEvent{
		BaseEvent: newBase(EventError),
		Operation: operation,
		Error:     err,
		Retryable: retryable,
	})
}

// Unsubscribe removes a subscription channel from a specific event type
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subscribers := eb.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
			break
		}
	}
}

// GetDroppedEventCount returns the total number of events dropped due to full buffers
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
