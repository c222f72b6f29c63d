package realtime

import "sync"

// Bridge forwards broker change events to the websocket hub so connected
// mobile clients see the same feed as in-process listeners.
type Bridge struct {
	broker *Broker
	hub    *Hub

	mu   sync.Mutex
	sub  *Subscription
	done chan struct{}
}

// NewBridge wires a broker to a hub. Call Start to begin forwarding.
func NewBridge(broker *Broker, hub *Hub) *Bridge {
	return &Bridge{broker: broker, hub: hub}
}

// Start opens a wildcard subscription and forwards each change to the hub as
// a per-user notification message. Calling Start twice is a no-op.
func (b *Bridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub != nil {
		return
	}

	b.sub = b.broker.Subscribe("")
	b.done = make(chan struct{})

	go func(sub *Subscription, done chan struct{}) {
		defer close(done)
		for change := range sub.Events() {
			b.hub.BroadcastToUser(StreamNotifications, change.UserID, Message{
				Event: "notification." + string(change.Kind),
				Data:  changePayload(change),
			})
		}
	}(b.sub, b.done)
}

// Stop tears down the bridge subscription and waits for the forwarder to drain.
func (b *Bridge) Stop() {
	b.mu.Lock()
	sub, done := b.sub, b.done
	b.sub, b.done = nil, nil
	b.mu.Unlock()

	if sub == nil {
		return
	}
	sub.Close()
	<-done
}

func changePayload(change Change) map[string]any {
	payload := map[string]any{"kind": string(change.Kind)}
	if change.After != nil {
		payload["notification"] = change.After
	}
	if change.Before != nil {
		payload["notification_id"] = change.Before.ID
	} else if change.After != nil {
		payload["notification_id"] = change.After.ID
	}
	return payload
}
