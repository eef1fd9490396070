package domain

// BaseAggregateRoot extends BaseEntity with the uncommitted-event list and
// the optimistic-lock version. Aggregates embed it; the event list is drained
// into the outbox in the same transaction that saves the aggregate.
type BaseAggregateRoot struct {
	BaseEntity
	domainEvents []DomainEvent
	version      int
}

// NewBaseAggregateRoot creates an aggregate root at version zero.
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity()}
}

// DomainEvents returns the events raised since the last drain.
func (a *BaseAggregateRoot) DomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents drops the drained events once they reach the outbox.
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// AddDomainEvent queues an event for the next drain.
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// Version is the persisted optimistic-lock version. Repositories bump it on
// every save.
func (a *BaseAggregateRoot) Version() int {
	return a.version
}

// RehydrateBaseAggregateRoot restores the embedded state from storage. The
// event list starts empty: rehydration never re-raises events.
func RehydrateBaseAggregateRoot(entity BaseEntity, version int) BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: entity, version: version}
}
