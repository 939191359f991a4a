package bus

import "sync"

// Manager tracks event subscriptions on one client connection and enforces
// their lifecycle: a handler is never invoked after its subscription has
// been cancelled, even when the subscribe round-trip is still in flight at
// cancel time. Several subscriptions may listen on the same event name;
// each holds its own daemon-side registration (the daemon refcounts them),
// so consumers like the overlay projection subscribe independently of the
// main one.
type Manager struct {
	client *Client

	mu   sync.Mutex
	subs map[string][]*Subscription // by event name
}

// NewManager wires a manager to the client's event stream.
func NewManager(client *Client) *Manager {
	m := &Manager{
		client: client,
		subs:   make(map[string][]*Subscription),
	}
	client.SetEventHandler(m.dispatch)
	return m
}

// Subscription is the cancellation token for one event subscription.
type Subscription struct {
	event string
	mgr   *Manager

	mu          sync.Mutex
	handler     func(Event)
	wanted      bool
	established bool
	err         error

	done chan struct{} // closed when establishment settles
}

// Subscribe registers a handler for an event name and starts establishing
// the subscription with the daemon. Establishment is asynchronous: wait on
// Done and check Err to observe failure. A consumer that switches event
// names must Cancel its old token; Cancel tears the old registration down
// even if its establishment is still in flight, so nothing leaks.
//
// The handler runs on the client's read loop and must not block or call
// back into the subscription.
func (m *Manager) Subscribe(event string, handler func(Event)) *Subscription {
	sub := &Subscription{
		event:   event,
		mgr:     m,
		handler: handler,
		wanted:  true,
		done:    make(chan struct{}),
	}

	m.mu.Lock()
	m.subs[event] = append(m.subs[event], sub)
	m.mu.Unlock()

	go sub.establish()
	return sub
}

// establish performs the subscribe round-trip. If the subscription was
// cancelled while the call was in flight, the registration is torn down
// immediately instead of ever dispatching.
func (s *Subscription) establish() {
	_, err := s.mgr.client.Invoke(Request{Op: OpSubscribe, Events: []string{s.event}})

	s.mu.Lock()
	s.established = err == nil
	s.err = err
	unwanted := !s.wanted
	if err != nil {
		// A failed subscription is dead: it never dispatches and is not
		// retried. The error stays readable through Err.
		s.wanted = false
	}
	s.mu.Unlock()
	close(s.done)

	if err != nil {
		s.mgr.forget(s)
		return
	}
	if unwanted {
		s.teardown()
	}
}

// Cancel disposes the subscription. After Cancel returns, the handler will
// not be invoked again regardless of delivery timing. Cancel is idempotent.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	if !s.wanted {
		s.mu.Unlock()
		return
	}
	s.wanted = false
	established := s.established
	s.mu.Unlock()

	s.mgr.forget(s)
	if established {
		s.teardown()
	}
	// Not yet established: establish() observes the cleared flag and tears
	// down the registration itself when the round-trip settles.
}

// Done is closed once the subscribe round-trip has settled.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err reports the establishment error, if any. Valid after Done is closed.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// teardown releases this registration daemon-side. Failures are ignored:
// the wanted flag already guarantees no further dispatch locally.
func (s *Subscription) teardown() {
	_, _ = s.mgr.client.Invoke(Request{Op: OpUnsubscribe, Events: []string{s.event}})
}

// CancelAll cancels every live subscription. Used on meeting stop and quit.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	var subs []*Subscription
	for _, list := range m.subs {
		subs = append(subs, list...)
	}
	m.mu.Unlock()

	for _, s := range subs {
		s.Cancel()
	}
}

// forget removes the subscription from the registry.
func (m *Manager) forget(s *Subscription) {
	m.mu.Lock()
	list := m.subs[s.event]
	for i, cur := range list {
		if cur == s {
			m.subs[s.event] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(m.subs[s.event]) == 0 {
		delete(m.subs, s.event)
	}
	m.mu.Unlock()
}

// dispatch routes one event frame to every subscription on its name.
// Holding the subscription lock across the handler call is what makes the
// cancellation guarantee airtight: Cancel cannot return while a delivery is
// mid-flight, and no delivery can start after Cancel has flipped the flag.
func (m *Manager) dispatch(ev Event) {
	m.mu.Lock()
	subs := make([]*Subscription, len(m.subs[ev.Event]))
	copy(subs, m.subs[ev.Event])
	m.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		if sub.wanted && sub.handler != nil {
			sub.handler(ev)
		}
		sub.mu.Unlock()
	}
}
