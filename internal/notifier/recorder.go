package notifier

import (
	"context"
	"sync"
)

// Sent is one recorded notification.
type Sent struct {
	RecipientID string
	Kind        Kind
	Payload     Payload
}

// Recorder is an in-memory Notifier for tests. It records every send and
// can be scripted to fail.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	err  error
}

// NewRecorder creates a new recording notifier.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Fail makes subsequent sends return err. Pass nil to restore success.
func (r *Recorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Send records the notification, or fails when scripted to.
func (r *Recorder) Send(_ context.Context, recipientID string, kind Kind, payload Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, Sent{
		RecipientID: recipientID,
		Kind:        kind,
		Payload:     payload,
	})
	return nil
}

// Calls returns a copy of all recorded notifications in send order.
func (r *Recorder) Calls() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// CallsFor returns the recorded notifications addressed to a recipient.
func (r *Recorder) CallsFor(recipientID string) []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Sent
	for _, s := range r.sent {
		if s.RecipientID == recipientID {
			out = append(out, s)
		}
	}
	return out
}

// Reset clears recorded notifications and any scripted failure.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
	r.err = nil
}

// Ensure Recorder implements Notifier interface.
var _ Notifier = (*Recorder)(nil)
