package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func subscribe(t *testing.T, ch Channel) {
	t.Helper()
	require.NoError(t, ch.Subscribe(context.Background(), nil))
}

func track(t *testing.T, ch Channel, record string) {
	t.Helper()
	require.NoError(t, ch.Track(context.Background(), json.RawMessage(record)))
}

// stateCollector records presence syncs delivered to one channel.
type stateCollector struct {
	mu     sync.Mutex
	states []PresenceState
}

func collectPresence(ch Channel) *stateCollector {
	c := &stateCollector{}
	ch.OnPresenceSync(func(state PresenceState) {
		c.mu.Lock()
		c.states = append(c.states, state)
		c.mu.Unlock()
	})
	return c
}

func (c *stateCollector) latest() PresenceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.states) == 0 {
		return nil
	}
	return c.states[len(c.states)-1]
}

func TestTrackRequiresSubscription(t *testing.T) {
	b := NewBroker()
	ch := b.Client().Channel("room:AAAAAA", "k1")

	err := ch.Track(context.Background(), json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrNotSubscribed)

	err = ch.Broadcast(context.Background(), "ping", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrNotSubscribed)
}

func TestSubscribeTwiceFails(t *testing.T) {
	b := NewBroker()
	ch := b.Client().Channel("room:AAAAAA", "k1")
	subscribe(t, ch)

	assert.ErrorIs(t, ch.Subscribe(context.Background(), nil), ErrAlreadyJoined)
}

func TestClosedChannelRejectsEverything(t *testing.T) {
	b := NewBroker()
	ch := b.Client().Channel("room:AAAAAA", "k1")
	subscribe(t, ch)
	require.NoError(t, ch.Close())

	assert.ErrorIs(t, ch.Track(context.Background(), json.RawMessage(`{}`)), ErrChannelClosed)
	assert.ErrorIs(t, ch.Broadcast(context.Background(), "ping", json.RawMessage(`{}`)), ErrChannelClosed)
	assert.ErrorIs(t, ch.Subscribe(context.Background(), nil), ErrChannelClosed)
	assert.NoError(t, ch.Close(), "close is idempotent")
}

func TestSubscribeReportsStatus(t *testing.T) {
	b := NewBroker()
	ch := b.Client().Channel("room:AAAAAA", "k1")

	var (
		mu       sync.Mutex
		statuses []Status
	)
	require.NoError(t, ch.Subscribe(context.Background(), func(s Status) {
		mu.Lock()
		statuses = append(statuses, s)
		mu.Unlock()
	}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(statuses) == 1 && statuses[0] == StatusSubscribed
	}, waitFor, tick)
}

func TestPresencePreservesArrivalOrder(t *testing.T) {
	b := NewBroker()
	client := b.Client()

	// Keys deliberately out of lexicographic order; presence must list
	// them by arrival, not alphabet.
	ch1 := client.Channel("room:AAAAAA", "zz")
	ch2 := client.Channel("room:AAAAAA", "aa")
	ch3 := client.Channel("room:AAAAAA", "mm")

	for _, ch := range []Channel{ch1, ch2, ch3} {
		subscribe(t, ch)
	}
	track(t, ch1, `{"name":"Zed"}`)
	track(t, ch2, `{"name":"Amy"}`)
	track(t, ch3, `{"name":"Mia"}`)

	require.Eventually(t, func() bool {
		return len(ch1.PresenceState()) == 3
	}, waitFor, tick)

	state := ch1.PresenceState()
	assert.Equal(t, []string{"zz", "aa", "mm"}, state.Keys())
}

func TestPresenceGroupsDuplicateKeys(t *testing.T) {
	// Two subscriptions under one key (a second tab) collapse into a
	// single entry carrying both records, first arrival first.
	b := NewBroker()
	client := b.Client()

	tab1 := client.Channel("room:AAAAAA", "k1")
	tab2 := client.Channel("room:AAAAAA", "k1")
	subscribe(t, tab1)
	subscribe(t, tab2)
	track(t, tab1, `{"tab":1}`)
	track(t, tab2, `{"tab":2}`)

	state := tab1.PresenceState()
	require.Len(t, state, 1)
	require.Len(t, state[0].Records, 2)
	assert.JSONEq(t, `{"tab":1}`, string(state[0].Records[0]))
	assert.JSONEq(t, `{"tab":2}`, string(state[0].Records[1]))

	entry, ok := state.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "k1", entry.Key)
}

func TestTrackFansSyncToEveryoneIncludingTracker(t *testing.T) {
	b := NewBroker()
	client := b.Client()

	ch1 := client.Channel("room:AAAAAA", "k1")
	ch2 := client.Channel("room:AAAAAA", "k2")
	col1 := collectPresence(ch1)
	col2 := collectPresence(ch2)
	subscribe(t, ch1)
	subscribe(t, ch2)

	track(t, ch1, `{"name":"One"}`)

	for _, col := range []*stateCollector{col1, col2} {
		require.Eventually(t, func() bool {
			state := col.latest()
			return len(state) == 1 && state[0].Key == "k1"
		}, waitFor, tick)
	}
}

func TestBroadcastSkipsSender(t *testing.T) {
	b := NewBroker()
	client := b.Client()

	sender := client.Channel("room:AAAAAA", "k1")
	peer := client.Channel("room:AAAAAA", "k2")

	var (
		mu       sync.Mutex
		senderN  int
		received []string
	)
	sender.OnBroadcast("ping", func(json.RawMessage) {
		mu.Lock()
		senderN++
		mu.Unlock()
	})
	peer.OnBroadcast("ping", func(payload json.RawMessage) {
		mu.Lock()
		received = append(received, string(payload))
		mu.Unlock()
	})

	subscribe(t, sender)
	subscribe(t, peer)

	require.NoError(t, sender.Broadcast(context.Background(), "ping", json.RawMessage(`{"n":1}`)))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, waitFor, tick)

	mu.Lock()
	defer mu.Unlock()
	assert.JSONEq(t, `{"n":1}`, received[0])
	assert.Zero(t, senderN, "sender must not hear its own broadcast")
}

func TestBroadcastDispatchesByEvent(t *testing.T) {
	b := NewBroker()
	client := b.Client()

	sender := client.Channel("room:AAAAAA", "k1")
	peer := client.Channel("room:AAAAAA", "k2")

	var (
		mu    sync.Mutex
		pings int
		pongs int
	)
	peer.OnBroadcast("ping", func(json.RawMessage) { mu.Lock(); pings++; mu.Unlock() })
	peer.OnBroadcast("pong", func(json.RawMessage) { mu.Lock(); pongs++; mu.Unlock() })

	subscribe(t, sender)
	subscribe(t, peer)

	require.NoError(t, sender.Broadcast(context.Background(), "ping", json.RawMessage(`{}`)))
	require.NoError(t, sender.Broadcast(context.Background(), "ping", json.RawMessage(`{}`)))
	require.NoError(t, sender.Broadcast(context.Background(), "pong", json.RawMessage(`{}`)))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return pings == 2 && pongs == 1
	}, waitFor, tick)
}

func TestBroadcastDoesNotCrossTopics(t *testing.T) {
	b := NewBroker()
	client := b.Client()

	sender := client.Channel("room:AAAAAA", "k1")
	other := client.Channel("room:BBBBBB", "k2")

	var (
		mu sync.Mutex
		n  int
	)
	other.OnBroadcast("ping", func(json.RawMessage) { mu.Lock(); n++; mu.Unlock() })

	subscribe(t, sender)
	subscribe(t, other)

	require.NoError(t, sender.Broadcast(context.Background(), "ping", json.RawMessage(`{}`)))

	// Give delivery a moment; nothing should arrive across topics.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, n)
}

func TestCloseRemovesPresenceAndNotifiesPeers(t *testing.T) {
	b := NewBroker()
	client := b.Client()

	ch1 := client.Channel("room:AAAAAA", "k1")
	ch2 := client.Channel("room:AAAAAA", "k2")
	col2 := collectPresence(ch2)
	subscribe(t, ch1)
	subscribe(t, ch2)
	track(t, ch1, `{"name":"One"}`)
	track(t, ch2, `{"name":"Two"}`)

	require.Eventually(t, func() bool {
		return len(col2.latest()) == 2
	}, waitFor, tick)

	require.NoError(t, ch1.Close())

	require.Eventually(t, func() bool {
		state := col2.latest()
		return len(state) == 1 && state[0].Key == "k2"
	}, waitFor, tick)
}

func TestCloseWithoutTrackIsSilent(t *testing.T) {
	b := NewBroker()
	client := b.Client()

	ch1 := client.Channel("room:AAAAAA", "k1")
	ch2 := client.Channel("room:AAAAAA", "k2")
	col2 := collectPresence(ch2)
	subscribe(t, ch1)
	subscribe(t, ch2)
	track(t, ch2, `{"name":"Two"}`)

	require.Eventually(t, func() bool {
		return len(col2.latest()) == 1
	}, waitFor, tick)

	// An untracked channel leaving produces no presence churn.
	col2.mu.Lock()
	before := len(col2.states)
	col2.mu.Unlock()
	require.NoError(t, ch1.Close())
	time.Sleep(50 * time.Millisecond)

	col2.mu.Lock()
	after := len(col2.states)
	col2.mu.Unlock()
	assert.Equal(t, before, after)
}

func TestRetrackReplacesRecord(t *testing.T) {
	b := NewBroker()
	client := b.Client()

	ch := client.Channel("room:AAAAAA", "k1")
	subscribe(t, ch)
	track(t, ch, `{"is_host":false}`)
	track(t, ch, `{"is_host":true}`)

	state := ch.PresenceState()
	require.Len(t, state, 1)
	require.Len(t, state[0].Records, 1, "retrack replaces, never appends")
	assert.JSONEq(t, `{"is_host":true}`, string(state[0].Records[0]))
}
