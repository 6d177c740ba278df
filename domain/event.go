package domain

import (
	"fmt"
	"time"

	"github.com/openmint/goapi/base/ctx"
)

type EventType string

const (
	EventMinted           EventType = "minted"
	EventListed           EventType = "listed"
	EventCancelled        EventType = "cancelled"
	EventBidAccepted      EventType = "bid-accepted"
	EventSold             EventType = "sold"
	EventAuctionStarted   EventType = "auction-started"
	EventAuctionSettled   EventType = "auction-settled"
	EventAuctionCancelled EventType = "auction-cancelled"
)

// Event is the envelope fanned out to subscribed sessions. The mirror store
// stays the source of truth; delivery is best effort.
type Event struct {
	Type      EventType   `json:"type"`
	AssetId   string      `json:"assetId"`
	ActorId   Address     `json:"actorId"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`

	// Users lists the accounts this event concerns (seller, buyer, bidders),
	// each of which receives a copy on its user scope.
	Users []Address `json:"-"`
}

// Scope identifies a fan-out delivery room
type Scope string

const ScopeGlobal = Scope("global")

func AssetScope(assetId string) Scope {
	return Scope(fmt.Sprintf("asset:%s", assetId))
}

func UserScope(user Address) Scope {
	return Scope(fmt.Sprintf("user:%s", user.ToLowerStr()))
}

// Scopes returns every scope the event should be delivered to
func (e *Event) Scopes() []Scope {
	scopes := []Scope{ScopeGlobal}
	if e.AssetId != "" {
		scopes = append(scopes, AssetScope(e.AssetId))
	}
	for _, u := range e.Users {
		scopes = append(scopes, UserScope(u))
	}
	return scopes
}

type EventPublisher interface {
	Publish(ctx.Ctx, *Event)
}
