// Package domain holds the pickup-order aggregate and the business rules
// that must hold no matter which store backend or transport is in front of
// them: the status transition table, the totals invariant (tax is always
// 8.25% of the subtotal), and the one-hour pickup window.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Location identifies one of the two shop locations. It is a closed enum,
// not free text.
type Location string

const (
	LocationNorth         Location = "north"
	LocationSouthCongress Location = "south-congress"
)

// ParseLocation validates a raw location string from an API request.
func ParseLocation(s string) (Location, bool) {
	switch Location(s) {
	case LocationNorth, LocationSouthCongress:
		return Location(s), true
	}
	return "", false
}

// NotifyMethod is the customer's chosen notification channel.
type NotifyMethod string

const (
	NotifyBySMS   NotifyMethod = "sms"
	NotifyByEmail NotifyMethod = "email"
)

// ReplacementPreference is how the customer wants an unavailable item handled.
type ReplacementPreference string

const (
	PreferSubstitute ReplacementPreference = "substitute"
	PreferRefund     ReplacementPreference = "refund"
	PreferCall       ReplacementPreference = "call"
)

// Direction of a message relative to the business.
type Direction string

const (
	DirectionToCustomer   Direction = "to-customer"
	DirectionToStore      Direction = "to-store"
	DirectionFromCustomer Direction = "from-customer"
	DirectionFromStore    Direction = "from-store"
)

// CommChannel is the medium a communication travelled over.
type CommChannel string

const (
	ChannelSMS    CommChannel = "sms"
	ChannelEmail  CommChannel = "email"
	ChannelWeb    CommChannel = "web"
	ChannelSystem CommChannel = "system"
)

// DeliveryStatus of an outbound message.
type DeliveryStatus string

const (
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Communication is one message event tied to an order. The Communications
// slice on Order is append-only.
type Communication struct {
	ID                string         `json:"id"`
	Direction         Direction      `json:"direction"`
	Channel           CommChannel    `json:"channel"`
	Body              string         `json:"body"`
	Status            DeliveryStatus `json:"status"`
	ProviderMessageID string         `json:"providerMessageId,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// Replacement is the negotiation sub-state of a line item: a staff-proposed
// substitute pending (or past) customer approval.
type Replacement struct {
	ProductID   string          `json:"productId"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Note        string          `json:"note,omitempty"`
	SuggestedBy string          `json:"suggestedBy"`
	SuggestedAt time.Time       `json:"suggestedAt"`
	WasReplaced bool            `json:"wasReplaced"`
	ApprovedAt  *time.Time      `json:"approvedAt,omitempty"`
}

// Pending reports whether the suggestion is still waiting on the customer.
func (r *Replacement) Pending() bool {
	return r != nil && !r.WasReplaced && r.ApprovedAt == nil
}

// OrderItem is one line within an order. Product fields are denormalized at
// order time so later catalog price changes never alter placed orders.
type OrderItem struct {
	ProductID   string                `json:"productId"`
	Name        string                `json:"name"`
	ImageURL    string                `json:"imageUrl,omitempty"`
	Category    string                `json:"category,omitempty"`
	UnitPrice   decimal.Decimal       `json:"unitPrice"`
	Quantity    int                   `json:"quantity"`
	LineTotal   decimal.Decimal       `json:"lineTotal"`
	Preference  ReplacementPreference `json:"replacementPreference"`
	Replacement *Replacement          `json:"replacement,omitempty"`
}

// Timeline records when each lifecycle transition actually happened.
// PlacedAt is always set; the rest only when the transition occurs.
type Timeline struct {
	PlacedAt       time.Time  `json:"placedAt"`
	ConfirmedAt    *time.Time `json:"confirmedAt,omitempty"`
	ReadyAt        *time.Time `json:"readyAt,omitempty"`
	PickupDeadline *time.Time `json:"pickupDeadline,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	CancelledAt    *time.Time `json:"cancelledAt,omitempty"`
}

// Order is the aggregate root. Orders are created once, mutated in place by
// staff actions, customer SMS replies and the expiration sweeper, and never
// deleted (terminal orders are kept for history).
type Order struct {
	ID     string `json:"id"`
	Number string `json:"orderNumber"`

	CustomerName string       `json:"customerName"`
	Phone        string       `json:"phone"`
	Email        string       `json:"email,omitempty"`
	NotifyVia    NotifyMethod `json:"notificationMethod"`

	Items []OrderItem `json:"items"`

	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`

	Location Location `json:"storeLocation"`
	Status   Status   `json:"status"`
	Timeline Timeline `json:"timeline"`

	Communications []Communication `json:"communications"`

	CustomerNotes string `json:"customerNotes,omitempty"`
	StoreNotes    string `json:"storeNotes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Version guards against lost updates: the store only accepts a write
	// whose version matches what it last handed out.
	Version int `json:"version"`
}

// AddCommunication appends a message event to the order's log.
func (o *Order) AddCommunication(c Communication) {
	o.Communications = append(o.Communications, c)
}

// AppendStoreNote adds a staff note, one per line.
func (o *Order) AppendStoreNote(note string) {
	if note == "" {
		return
	}
	if o.StoreNotes == "" {
		o.StoreNotes = note
		return
	}
	o.StoreNotes += "\n" + note
}

// PendingReplacementIndex returns the lowest item index with an unresolved
// replacement suggestion, or -1. A single SMS reply only ever resolves the
// first pending suggestion.
func (o *Order) PendingReplacementIndex() int {
	for i := range o.Items {
		if o.Items[i].Replacement.Pending() {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so store implementations never hand out aliased
// slices.
func (o *Order) Clone() *Order {
	cp := *o
	cp.Items = make([]OrderItem, len(o.Items))
	copy(cp.Items, o.Items)
	for i := range cp.Items {
		if r := cp.Items[i].Replacement; r != nil {
			rc := *r
			cp.Items[i].Replacement = &rc
		}
	}
	cp.Communications = make([]Communication, len(o.Communications))
	copy(cp.Communications, o.Communications)
	cp.Timeline = cloneTimeline(o.Timeline)
	return &cp
}

func cloneTimeline(t Timeline) Timeline {
	cp := t
	cp.ConfirmedAt = cloneTime(t.ConfirmedAt)
	cp.ReadyAt = cloneTime(t.ReadyAt)
	cp.PickupDeadline = cloneTime(t.PickupDeadline)
	cp.CompletedAt = cloneTime(t.CompletedAt)
	cp.CancelledAt = cloneTime(t.CancelledAt)
	return cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
