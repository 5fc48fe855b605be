package events

import (
	"errors"
	"testing"
	"time"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventBrowse)

	bus.Publish(&BrowseEvent{
		BaseEvent: newBase(EventBrowse),
		FolderID:  "12",
		Folders:   2,
		Documents: 5,
	})

	select {
	case received := <-ch:
		browse, ok := received.(*BrowseEvent)
		if !ok {
			t.Fatal("Expected BrowseEvent")
		}
		if browse.FolderID != "12" {
			t.Errorf("Expected folder '12', got '%s'", browse.FolderID)
		}
		if browse.Documents != 5 {
			t.Errorf("Expected 5 documents, got %d", browse.Documents)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}
}

func TestEventBus_DifferentEventTypes(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	browseCh := bus.Subscribe(EventBrowse)
	archiveCh := bus.Subscribe(EventArchive)

	bus.Publish(&BrowseEvent{BaseEvent: newBase(EventBrowse)})

	select {
	case <-browseCh:
	case <-time.After(100 * time.Millisecond):
		t.Error("Browse subscriber didn't receive event")
	}

	select {
	case <-archiveCh:
		t.Error("Archive subscriber received wrong event type")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	allCh := bus.SubscribeAll()

	bus.PublishCacheInvalidated("folder_created")
	bus.PublishAssignmentState(7, "asg-1", "SUBMITTING", "PROCESSING", 0, "")

	count := 0
	for i := 0; i < 2; i++ {
		select {
		case <-allCh:
			count++
		case <-time.After(100 * time.Millisecond):
		}
	}

	if count != 2 {
		t.Errorf("Expected to receive 2 events, got %d", count)
	}
}

func TestEventBus_NonBlocking(t *testing.T) {
	bus := NewEventBus(2)
	defer bus.Close()

	ch := bus.Subscribe(EventAssignmentState)

	for i := 0; i < 10; i++ {
		bus.PublishAssignmentState(1, "asg", "POLLING", "POLLING", i+1, "")
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
		case <-time.After(10 * time.Millisecond):
			goto done
		}
	}
done:

	if count != 2 {
		t.Errorf("Expected buffer of 2 events, got %d", count)
	}
	if dropped := bus.GetDroppedEventCount(); dropped != 8 {
		t.Errorf("Expected 8 dropped events, got %d", dropped)
	}
}

func TestEventBus_Close(t *testing.T) {
	bus := NewEventBus(10)

	ch := bus.Subscribe(EventBrowse)

	bus.Close()

	if _, ok := <-ch; ok {
		t.Error("Channel should be closed after bus.Close()")
	}

	// Publishing after close should not panic
	bus.PublishError("browse", errors.New("boom"), true)
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var bus *EventBus
	bus.PublishCacheRebuilt(1, 2)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventDataIntegrity)
	bus.Unsubscribe(EventDataIntegrity, ch)

	bus.Publish(&DataIntegrityEvent{BaseEvent: newBase(EventDataIntegrity), FolderID: 3, Kind: "cycle"})

	select {
	case <-ch:
		t.Error("unsubscribed channel received an event")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestConvenienceMethods(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	stateCh := bus.Subscribe(EventAssignmentState)
	cacheCh := bus.Subscribe(EventCacheRebuilt)

	bus.PublishAssignmentState(42, "asg-9", "POLLING", "COMPLETED", 4, "")

	select {
	case event := <-stateCh:
		state, ok := event.(*AssignmentStateEvent)
		if !ok {
			t.Fatal("Expected AssignmentStateEvent")
		}
		if state.NewState != "COMPLETED" || state.Attempt != 4 {
			t.Errorf("unexpected state event %+v", state)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Timeout waiting for state event")
	}

	bus.PublishCacheRebuilt(3, 9)

	select {
	case event := <-cacheCh:
		cache, ok := event.(*CacheEvent)
		if !ok {
			t.Fatal("Expected CacheEvent")
		}
		if cache.Folders != 3 || cache.Documents != 9 {
			t.Errorf("unexpected cache event %+v", cache)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Timeout waiting for cache event")
	}
}
