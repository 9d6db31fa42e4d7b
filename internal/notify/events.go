package notify

import (
	"context"
	"time"

	"github.com/mssola/useragent"

	claimservice "alapay/internal/claims/service"
	"alapay/pkg/requestcontext"
)

// Event is the wire shape published for a committed claim transition.
// Downstream consumers (email dispatch, dashboards) subscribe to these;
// nothing in this core awaits them.
type Event struct {
	Kind       string    `json:"kind"`
	ClaimID    string    `json:"claim_id"`
	HMOID      string    `json:"hmo_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Reason     string    `json:"reason,omitempty"`
	ActorID    string    `json:"actor_id"`
	Client     string    `json:"client,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// fromChange enriches a committed transition with request metadata for the
// audit trail downstream.
func fromChange(ctx context.Context, change claimservice.StatusChange) Event {
	return Event{
		Kind:       change.Kind,
		ClaimID:    change.ClaimID,
		HMOID:      change.HMOID.String(),
		From:       string(change.From),
		To:         string(change.To),
		Reason:     change.Reason,
		ActorID:    change.ActorID.String(),
		Client:     clientSummary(requestcontext.UserAgent(ctx)),
		ClientIP:   requestcontext.ClientIP(ctx),
		RequestID:  requestcontext.RequestID(ctx),
		OccurredAt: change.At,
	}
}

// clientSummary condenses a raw User-Agent header into "Browser x.y on OS".
func clientSummary(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	summary := name
	if version != "" {
		summary += " " + version
	}
	if os := ua.OS(); os != "" {
		summary += " on " + os
	}
	return summary
}
