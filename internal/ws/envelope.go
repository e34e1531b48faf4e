package ws

import "sync"

// OriginTransport marks a broadcast echo that was re-sent by the message's own
// author over the websocket after its durable write confirmed. The id itself
// is canonical either way; the marker only records which path delivered it.
const OriginTransport = "transport"

// Envelope identifies a broadcast message for de-duplication. Consumers
// compare canonical keys structurally; they never parse markers out of the id.
type Envelope struct {
	CanonicalID  string `json:"canonicalId"`
	OriginMarker string `json:"originMarker,omitempty"`
}

// Canonical returns the key both delivery paths normalize to.
func (e Envelope) Canonical() string {
	return e.CanonicalID
}

// Reconciler merges the two delivery paths a message can arrive through: the
// durable-write response and the broadcast echo. It keeps exactly one entry
// per canonical id no matter which path lands first, and replaces optimistic
// placeholders rather than duplicating them.
type Reconciler struct {
	mu    sync.Mutex
	order []string
	seen  map[string]struct{}
}

func NewReconciler() *Reconciler {
	return &Reconciler{seen: make(map[string]struct{})}
}

// AddOptimistic records a locally-displayed placeholder under a temporary key.
func (r *Reconciler) AddOptimistic(tempID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[tempID]; ok {
		return
	}
	r.seen[tempID] = struct{}{}
	r.order = append(r.order, tempID)
}

// Confirm swaps a placeholder for its canonical id once the durable write
// responds. If the broadcast echo arrived first the canonical id is already
// present and the placeholder is simply dropped.
func (r *Reconciler) Confirm(tempID, canonicalID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, hadTemp := r.seen[tempID]
	_, hadCanonical := r.seen[canonicalID]

	if hadTemp {
		delete(r.seen, tempID)
		if hadCanonical {
			r.remove(tempID)
		} else {
			r.replace(tempID, canonicalID)
		}
	} else if !hadCanonical {
		r.order = append(r.order, canonicalID)
	}
	r.seen[canonicalID] = struct{}{}
}

// Discard drops a placeholder whose durable write failed.
func (r *Reconciler) Discard(tempID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[tempID]; !ok {
		return
	}
	delete(r.seen, tempID)
	r.remove(tempID)
}

// Receive handles a broadcast echo in either canonical or origin-marked form.
// It reports whether the message was newly added (false means duplicate).
func (r *Reconciler) Receive(env Envelope) bool {
	key := env.Canonical()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[key]; ok {
		return false
	}
	r.seen[key] = struct{}{}
	r.order = append(r.order, key)
	return true
}

// IDs returns the reconciled view in display order.
func (r *Reconciler) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Reconciler) replace(oldID, newID string) {
	for i, id := range r.order {
		if id == oldID {
			r.order[i] = newID
			return
		}
	}
}

func (r *Reconciler) remove(id string) {
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
