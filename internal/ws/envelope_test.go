package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeNormalization(t *testing.T) {
	canonical := Envelope{CanonicalID: "msg-1"}
	marked := Envelope{CanonicalID: "msg-1", OriginMarker: OriginTransport}

	assert.Equal(t, canonical.Canonical(), marked.Canonical())
}

func TestReconcileResponseThenEcho(t *testing.T) {
	rec := NewReconciler()

	rec.AddOptimistic("temp-1")
	rec.Confirm("temp-1", "K")

	// The broadcast echo of our own message arrives afterwards, origin-marked.
	added := rec.Receive(Envelope{CanonicalID: "K", OriginMarker: OriginTransport})
	assert.False(t, added)

	require.Equal(t, []string{"K"}, rec.IDs())
}

func TestReconcileEchoThenResponse(t *testing.T) {
	rec := NewReconciler()

	rec.AddOptimistic("temp-1")

	// The broadcast path wins the race this time.
	added := rec.Receive(Envelope{CanonicalID: "K"})
	assert.True(t, added)

	rec.Confirm("temp-1", "K")

	require.Equal(t, []string{"K"}, rec.IDs())
}

func TestReconcileKeepsDisplayOrder(t *testing.T) {
	rec := NewReconciler()

	rec.Receive(Envelope{CanonicalID: "A"})
	rec.AddOptimistic("temp-1")
	rec.Receive(Envelope{CanonicalID: "B"})
	rec.Confirm("temp-1", "K")

	// The placeholder is replaced in place, not re-appended.
	assert.Equal(t, []string{"A", "K", "B"}, rec.IDs())
}

func TestReconcileDiscardFailedSubmit(t *testing.T) {
	rec := NewReconciler()

	rec.AddOptimistic("temp-1")
	rec.Discard("temp-1")

	assert.Empty(t, rec.IDs())

	// Discarding twice is harmless.
	rec.Discard("temp-1")
	assert.Empty(t, rec.IDs())
}

func TestReconcileOtherMembersMessages(t *testing.T) {
	rec := NewReconciler()

	// A non-sender only ever sees broadcasts; both delivery variants of the
	// same message still collapse to one entry.
	assert.True(t, rec.Receive(Envelope{CanonicalID: "K"}))
	assert.False(t, rec.Receive(Envelope{CanonicalID: "K", OriginMarker: OriginTransport}))
	assert.Equal(t, []string{"K"}, rec.IDs())
}

func TestReconcileConfirmWithoutOptimistic(t *testing.T) {
	rec := NewReconciler()

	// A consumer that skipped the optimistic step still converges.
	rec.Confirm("temp-unknown", "K")
	assert.Equal(t, []string{"K"}, rec.IDs())
	assert.False(t, rec.Receive(Envelope{CanonicalID: "K"}))
}
