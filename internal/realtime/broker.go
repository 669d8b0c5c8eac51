package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var (
	ErrChannelClosed = errors.New("channel is closed")
	ErrNotSubscribed = errors.New("channel is not subscribed")
	ErrAlreadyJoined = errors.New("channel is already subscribed")
)

// deliveryBuffer bounds the per-subscriber event queue. Subscribers that
// fall this far behind are dropped, matching the relay's behavior for slow
// websocket clients.
const deliveryBuffer = 64

// Broker is an in-process realtime backend: topics with presence tracking
// and broadcast fan-out, no network involved. It implements the same
// semantics as the relay server and backs the coordinator's tests as well
// as single-process play.
type Broker struct {
	mu     sync.Mutex
	topics map[string]*topic
}

type topic struct {
	name string
	subs []*localChannel // arrival order
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{topics: make(map[string]*topic)}
}

// Client returns a Client whose channels connect to this broker.
func (b *Broker) Client() Client {
	return &localClient{broker: b}
}

type localClient struct {
	broker *Broker
}

func (c *localClient) Channel(topicName, key string) Channel {
	return &localChannel{
		broker: c.broker,
		topic:  topicName,
		key:    key,

		onBroadcast: make(map[string][]BroadcastHandler),
	}
}

// localChannel is one subscription against the broker. Events are delivered
// by a dedicated goroutine so handlers never run on the publisher's
// goroutine, mirroring how a real transport schedules delivery.
type localChannel struct {
	broker *Broker
	topic  string
	key    string

	mu          sync.Mutex
	onBroadcast map[string][]BroadcastHandler
	onPresence  []PresenceHandler
	record      json.RawMessage
	tracked     bool
	subscribed  bool
	closed      bool

	deliver chan func()
	done    chan struct{}
}

func (ch *localChannel) OnBroadcast(event string, fn BroadcastHandler) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.onBroadcast[event] = append(ch.onBroadcast[event], fn)
}

func (ch *localChannel) OnPresenceSync(fn PresenceHandler) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.onPresence = append(ch.onPresence, fn)
}

func (ch *localChannel) Subscribe(ctx context.Context, onStatus StatusHandler) error {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return ErrChannelClosed
	}
	if ch.subscribed {
		ch.mu.Unlock()
		return ErrAlreadyJoined
	}
	ch.subscribed = true
	ch.deliver = make(chan func(), deliveryBuffer)
	ch.done = make(chan struct{})
	ch.mu.Unlock()

	go ch.deliveryLoop()

	b := ch.broker
	b.mu.Lock()
	t, ok := b.topics[ch.topic]
	if !ok {
		t = &topic{name: ch.topic}
		b.topics[ch.topic] = t
	}
	t.subs = append(t.subs, ch)
	b.mu.Unlock()

	if onStatus != nil {
		ch.enqueue(func() { onStatus(StatusSubscribed) })
	}
	return nil
}

func (ch *localChannel) Track(ctx context.Context, record json.RawMessage) error {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return ErrChannelClosed
	}
	if !ch.subscribed {
		ch.mu.Unlock()
		return ErrNotSubscribed
	}
	ch.record = record
	ch.tracked = true
	ch.mu.Unlock()

	ch.broker.fanPresence(ch.topic)
	return nil
}

func (ch *localChannel) Broadcast(ctx context.Context, event string, payload json.RawMessage) error {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return ErrChannelClosed
	}
	if !ch.subscribed {
		ch.mu.Unlock()
		return ErrNotSubscribed
	}
	ch.mu.Unlock()

	b := ch.broker
	b.mu.Lock()
	t := b.topics[ch.topic]
	var peers []*localChannel
	if t != nil {
		peers = make([]*localChannel, 0, len(t.subs))
		for _, sub := range t.subs {
			if sub != ch {
				peers = append(peers, sub)
			}
		}
	}
	b.mu.Unlock()

	for _, peer := range peers {
		peer.dispatchBroadcast(event, payload)
	}
	return nil
}

func (ch *localChannel) PresenceState() PresenceState {
	return ch.broker.presenceState(ch.topic)
}

func (ch *localChannel) Close() error {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return nil
	}
	wasSubscribed := ch.subscribed
	ch.closed = true
	ch.subscribed = false
	hadRecord := ch.tracked
	ch.tracked = false
	ch.mu.Unlock()

	if !wasSubscribed {
		return nil
	}

	b := ch.broker
	b.mu.Lock()
	if t, ok := b.topics[ch.topic]; ok {
		for i, sub := range t.subs {
			if sub == ch {
				t.subs = append(t.subs[:i], t.subs[i+1:]...)
				break
			}
		}
		if len(t.subs) == 0 {
			delete(b.topics, ch.topic)
		}
	}
	b.mu.Unlock()

	close(ch.done)

	if hadRecord {
		b.fanPresence(ch.topic)
	}
	return nil
}

func (ch *localChannel) deliveryLoop() {
	for {
		select {
		case fn := <-ch.deliver:
			fn()
		case <-ch.done:
			return
		}
	}
}

// enqueue hands an event to the delivery goroutine. A subscriber whose
// queue stays full is cut loose rather than blocking the publisher.
func (ch *localChannel) enqueue(fn func()) {
	select {
	case ch.deliver <- fn:
	case <-ch.done:
	default:
		ch.Close()
	}
}

func (ch *localChannel) dispatchBroadcast(event string, payload json.RawMessage) {
	ch.mu.Lock()
	handlers := make([]BroadcastHandler, len(ch.onBroadcast[event]))
	copy(handlers, ch.onBroadcast[event])
	ch.mu.Unlock()

	if len(handlers) == 0 {
		return
	}
	ch.enqueue(func() {
		for _, fn := range handlers {
			fn(payload)
		}
	})
}

func (ch *localChannel) dispatchPresence(state PresenceState) {
	ch.mu.Lock()
	handlers := make([]PresenceHandler, len(ch.onPresence))
	copy(handlers, ch.onPresence)
	ch.mu.Unlock()

	if len(handlers) == 0 {
		return
	}
	ch.enqueue(func() {
		for _, fn := range handlers {
			fn(state)
		}
	})
}

// presenceState builds the current presence table for a topic, keyed and
// ordered by subscriber arrival. Channels that never tracked a record do
// not appear.
func (b *Broker) presenceState(topicName string) PresenceState {
	b.mu.Lock()
	t := b.topics[topicName]
	var subs []*localChannel
	if t != nil {
		subs = make([]*localChannel, len(t.subs))
		copy(subs, t.subs)
	}
	b.mu.Unlock()

	state := make(PresenceState, 0, len(subs))
	for _, sub := range subs {
		sub.mu.Lock()
		tracked := sub.tracked
		record := sub.record
		key := sub.key
		sub.mu.Unlock()
		if !tracked {
			continue
		}

		appended := false
		for i := range state {
			if state[i].Key == key {
				state[i].Records = append(state[i].Records, record)
				appended = true
				break
			}
		}
		if !appended {
			state = append(state, PresenceEntry{Key: key, Records: []json.RawMessage{record}})
		}
	}
	return state
}

// fanPresence delivers a fresh presence table to every subscriber of the
// topic, the tracking client included.
func (b *Broker) fanPresence(topicName string) {
	state := b.presenceState(topicName)

	b.mu.Lock()
	t := b.topics[topicName]
	var subs []*localChannel
	if t != nil {
		subs = make([]*localChannel, len(t.subs))
		copy(subs, t.subs)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.dispatchPresence(state)
	}
}
