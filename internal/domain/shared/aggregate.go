package shared

// BaseAggregateRoot is embedded by aggregates saved under optimistic locking.
// Repositories compare Version-1 against the stored row on save. Events
// recorded on the aggregate wait here until the service that committed the
// change pulls and publishes them.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	pending []DomainEvent
}

// NewBaseAggregateRoot starts a new aggregate at version 1.
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// IncrementVersion bumps the optimistic lock version before a save.
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent records e for publication after commit.
func (a *BaseAggregateRoot) AddDomainEvent(e DomainEvent) {
	a.pending = append(a.pending, e)
}

// PendingEvents returns recorded events without clearing them.
func (a *BaseAggregateRoot) PendingEvents() []DomainEvent {
	return a.pending
}

// ClearDomainEvents drops recorded events.
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}

// PullDomainEvents returns recorded events and clears them.
func (a *BaseAggregateRoot) PullDomainEvents() []DomainEvent {
	out := a.pending
	a.pending = nil
	return out
}
