package team

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/crew/internal/bus"
)

// Handshake tracks the request/response pairs between the lead and
// teammates: shutdown requests and plan reviews. Entries are keyed by the
// request id that travels on the bus.
type Handshake struct {
	bus *bus.Bus

	mu        sync.Mutex
	shutdowns map[string]string // request id -> target
	plans     map[string]string // request id -> submitter
}

func NewHandshake(b *bus.Bus) *Handshake {
	return &Handshake{
		bus:       b,
		shutdowns: make(map[string]string),
		plans:     make(map[string]string),
	}
}

// RequestShutdown files a pending shutdown and asks the target to stop.
func (h *Handshake) RequestShutdown(target string) (string, error) {
	id := uuid.NewString()[:8]

	h.mu.Lock()
	h.shutdowns[id] = target
	h.mu.Unlock()

	_, err := h.bus.Send(bus.Message{
		Type:      bus.TypeShutdownRequest,
		From:      LeadName,
		Content:   "Please shut down.",
		RequestID: id,
	}, target)
	if err != nil {
		h.mu.Lock()
		delete(h.shutdowns, id)
		h.mu.Unlock()
		return "", err
	}
	return id, nil
}

// CompleteShutdown clears a pending shutdown when its response arrives.
// Returns the target name.
func (h *Handshake) CompleteShutdown(requestID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	target, ok := h.shutdowns[requestID]
	if ok {
		delete(h.shutdowns, requestID)
	}
	return target, ok
}

// RegisterPlan records a teammate's submitted plan awaiting lead review.
func (h *Handshake) RegisterPlan(requestID, from string) {
	h.mu.Lock()
	h.plans[requestID] = from
	h.mu.Unlock()
}

// ResolvePlan approves or rejects a pending plan and notifies the submitter.
func (h *Handshake) ResolvePlan(requestID string, approve bool, feedback string) (string, error) {
	h.mu.Lock()
	target, ok := h.plans[requestID]
	if ok {
		delete(h.plans, requestID)
	}
	h.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("Unknown plan request_id '%s'", requestID)
	}

	verdict := "approved"
	if !approve {
		verdict = "rejected"
	}
	_, err := h.bus.Send(bus.Message{
		Type:      bus.TypePlanApprovalResponse,
		From:      LeadName,
		Content:   fmt.Sprintf("Plan %s.", verdict),
		RequestID: requestID,
		Approve:   &approve,
		Feedback:  feedback,
	}, target)
	if err != nil {
		return "", err
	}
	return target, nil
}
