package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries identity and timestamps.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch moves UpdatedAt to now.
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}

// BaseAggregateRoot is an entity with an optimistic-lock version and the
// events raised since it was last saved.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	pending []DomainEvent
}

func (a *BaseAggregateRoot) GetVersion() int   { return a.Version }
func (a *BaseAggregateRoot) IncrementVersion() { a.Version++ }

// Raise queues an event for publication once the aggregate is persisted.
func (a *BaseAggregateRoot) Raise(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// GetDomainEvents returns the queued events without clearing them.
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

// TakeDomainEvents returns the queued events and clears the queue.
func (a *BaseAggregateRoot) TakeDomainEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}

// TenantAggregateRoot scopes an aggregate to one storefront.
type TenantAggregateRoot struct {
	BaseAggregateRoot
	TenantID  uuid.UUID
	CreatedBy *uuid.UUID
}

// NewTenantAggregateRoot starts a version 1 aggregate with a fresh ID.
// A nil or zero creator is stored as unknown.
func NewTenantAggregateRoot(tenantID uuid.UUID, createdBy *uuid.UUID) TenantAggregateRoot {
	now := time.Now()
	root := TenantAggregateRoot{
		BaseAggregateRoot: BaseAggregateRoot{
			BaseEntity: BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			Version:    1,
		},
		TenantID: tenantID,
	}
	if createdBy != nil && *createdBy != uuid.Nil {
		id := *createdBy
		root.CreatedBy = &id
	}
	return root
}
