package statuschannel

import (
	"errors"
	"sync"
	"testing"

	"github.com/utkarsh205-ui/order-execution-engine/pkg/engine/model"
)

type recordingSink struct {
	mu     sync.Mutex
	events []*model.StatusEvent
	fail   bool
}

func (s *recordingSink) Send(event *model.StatusEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("connection gone")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) statuses() []model.OrderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OrderStatus, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Status
	}
	return out
}

func TestPublishDeliversToBoundSink(t *testing.T) {
	ch := New()
	sink := &recordingSink{}
	ch.Bind("o1", sink)

	ch.Publish("o1", model.NewEventRouting("o1"))
	ch.Publish("o1", model.NewEventBuilding("o1", "Raydium"))

	got := sink.statuses()
	if len(got) != 2 || got[0] != model.OrderStatusRouting || got[1] != model.OrderStatusBuilding {
		t.Errorf("unexpected delivery order: %v", got)
	}
}

func TestPublishWithoutBindingIsSilent(t *testing.T) {
	ch := New()
	// must not panic or block
	ch.Publish("unknown", model.NewEventRouting("unknown"))
}

func TestBindReplacesPriorSink(t *testing.T) {
	ch := New()
	first := &recordingSink{}
	second := &recordingSink{}

	ch.Bind("o1", first)
	ch.Bind("o1", second)
	ch.Publish("o1", model.NewEventRouting("o1"))

	if len(first.statuses()) != 0 {
		t.Error("replaced sink still received events")
	}
	if len(second.statuses()) != 1 {
		t.Error("active sink did not receive the event")
	}
}

func TestUnbindDropsSubsequentEvents(t *testing.T) {
	ch := New()
	sink := &recordingSink{}
	ch.Bind("o1", sink)
	ch.Unbind("o1")

	ch.Publish("o1", model.NewEventRouting("o1"))
	if len(sink.statuses()) != 0 {
		t.Error("unbound sink received an event")
	}
}

func TestPublishSurvivesSinkFailure(t *testing.T) {
	ch := New()
	ch.Bind("o1", &recordingSink{fail: true})
	// delivery failure must not propagate
	ch.Publish("o1", model.NewEventRouting("o1"))
}

func TestConcurrentBindPublish(t *testing.T) {
	ch := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			ch.Bind("o1", &recordingSink{})
		}(i)
		go func(n int) {
			defer wg.Done()
			ch.Publish("o1", model.NewEventRouting("o1"))
		}(i)
	}
	wg.Wait()
}
