package app

import (
	"sync"

	"github.com/dwikikusuma/storefront-gateway/internal/cart/domain"
)

// Broadcaster fans the latest state of a cart out to its subscribers.
// Subscriber channels hold at most one pending cart; a slow reader only ever
// sees the newest one, and Publish never blocks. A cart older than the last
// one sent for its id is dropped, so publishers racing after their commits
// cannot leave subscribers on a stale cart.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
	sent map[string]int64 // cart id -> last version delivered
}

type subscriber struct {
	ch chan domain.Cart
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[string]map[*subscriber]struct{}),
		sent: make(map[string]int64),
	}
}

// Subscribe returns a channel of cart updates for cartID and a cancel func
// that unsubscribes and closes the channel.
func (b *Broadcaster) Subscribe(cartID string) (<-chan domain.Cart, func()) {
	sub := &subscriber{ch: make(chan domain.Cart, 1)}

	b.mu.Lock()
	set, ok := b.subs[cartID]
	if !ok {
		set = make(map[*subscriber]struct{})
		b.subs[cartID] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.subs[cartID]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(b.subs, cartID)
					delete(b.sent, cartID)
				}
			}
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

func (b *Broadcaster) Publish(cart domain.Cart) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.subs[cart.ID]
	if len(set) == 0 {
		return
	}
	if last, ok := b.sent[cart.ID]; ok && cart.Version < last {
		return
	}
	b.sent[cart.ID] = cart.Version

	for sub := range set {
		// Drop the stale pending value, if any, then send the new one. Both
		// happen under b.mu so nothing else writes to sub.ch in between.
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- cart.Clone()
	}
}

func (b *Broadcaster) Subscribers(cartID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[cartID])
}
