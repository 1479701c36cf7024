package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Alert is a fired local notification.
type Alert struct {
	ID      string
	Title   string
	Body    string
	FiredAt time.Time
}

// LocalNotifier is an in-process Gateway backed by one timer per pending
// alert. Permission is granted on first request and remembered for the
// process lifetime. Fired alerts are handed to the deliver callback, or just
// logged when none is set.
type LocalNotifier struct {
	mu      sync.Mutex
	granted bool
	timers  map[string]*time.Timer
	deliver func(Alert)
}

func NewLocalNotifier(deliver func(Alert)) *LocalNotifier {
	return &LocalNotifier{
		timers:  make(map[string]*time.Timer),
		deliver: deliver,
	}
}

func (n *LocalNotifier) RequestPermission(_ context.Context) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.granted = true
	return true, nil
}

func (n *LocalNotifier) Schedule(id string, fireAt time.Time, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.granted {
		return fmt.Errorf("notification permission not granted")
	}
	d := time.Until(fireAt)
	if d <= 0 {
		return fmt.Errorf("alert time %s is in the past", fireAt)
	}

	// Same id replaces the pending alert.
	if t, ok := n.timers[id]; ok {
		t.Stop()
	}
	n.timers[id] = time.AfterFunc(d, func() {
		n.fire(id, title, body)
	})
	return nil
}

func (n *LocalNotifier) Cancel(id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if t, ok := n.timers[id]; ok {
		t.Stop()
		delete(n.timers, id)
	}
	return nil
}

// Stop cancels every pending alert. Called on shutdown.
func (n *LocalNotifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
}

func (n *LocalNotifier) fire(id, title, body string) {
	n.mu.Lock()
	delete(n.timers, id)
	deliver := n.deliver
	n.mu.Unlock()

	alert := Alert{ID: id, Title: title, Body: body, FiredAt: time.Now()}
	log.Info().
		Str("alert_id", id).
		Str("title", title).
		Msg("local alert fired")
	if deliver != nil {
		deliver(alert)
	}
}
