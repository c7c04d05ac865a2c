// Package events fans the event lines the race produces out to every
// registered listener, such as websocket clients following a round.
package events

import (
	"fmt"
	"sync"
)

// DefaultBuffer is the number of lines queued for a listener before new
// lines are dropped for it. A websocket write can take long, so the buffer
// gives a slow listener room to catch up during a burst of step changes.
const DefaultBuffer = 256

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events.
type Events struct {
	buffer  int
	mu      sync.RWMutex
	m       map[string]chan string
	dropped map[string]int
}

// New constructs an events for registering and receiving events. A buffer
// less than one uses DefaultBuffer.
func New(buffer int) *Events {
	if buffer < 1 {
		buffer = DefaultBuffer
	}

	return &Events{
		buffer:  buffer,
		m:       make(map[string]chan string),
		dropped: make(map[string]int),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		delete(evt.dropped, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events.
func (evt *Events) Acquire(id string) <-chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if exists {
		return ch
	}

	ch = make(chan string, evt.buffer)
	evt.m[id] = ch

	return ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire. It returns the number of lines the listener missed.
func (evt *Events) Release(id string) (int, error) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return 0, fmt.Errorf("id %q does not exist", id)
	}

	dropped := evt.dropped[id]

	delete(evt.m, id)
	delete(evt.dropped, id)
	close(ch)

	return dropped, nil
}

// Send signals a message to every registered channel. Send will not block
// waiting for a receiver on any given channel.
func (evt *Events) Send(s string) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		select {
		case ch <- s:
		default:
			evt.dropped[id]++
		}
	}
}

// Listeners returns the number of registered listeners.
func (evt *Events) Listeners() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}
