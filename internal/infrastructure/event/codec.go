package event

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/domain/shared"
)

// Codec turns domain events into JSON and back. Types must be registered
// before the codec is shared between goroutines.
type Codec struct {
	factories map[string]func() shared.DomainEvent
}

func NewCodec() *Codec {
	return &Codec{factories: make(map[string]func() shared.DomainEvent)}
}

// NewImportEventCodec knows the import run outcome events.
func NewImportEventCodec() *Codec {
	c := NewCodec()
	c.Register(bulk.EventTypeImportCompleted, func() shared.DomainEvent { return new(bulk.ImportCompletedEvent) })
	c.Register(bulk.EventTypeImportFailed, func() shared.DomainEvent { return new(bulk.ImportFailedEvent) })
	return c
}

// Register sets the constructor Decode uses for eventType. It must return a
// pointer so the JSON decoder can fill it.
func (c *Codec) Register(eventType string, factory func() shared.DomainEvent) {
	c.factories[eventType] = factory
}

func (c *Codec) Encode(event shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event.EventType(), err)
	}
	return data, nil
}

func (c *Codec) Decode(eventType string, data []byte) (shared.DomainEvent, error) {
	factory, ok := c.factories[eventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
	event := factory()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	return event, nil
}

func (c *Codec) Knows(eventType string) bool {
	_, ok := c.factories[eventType]
	return ok
}

// Types lists the registered event types in sorted order.
func (c *Codec) Types() []string {
	types := make([]string, 0, len(c.factories))
	for t := range c.factories {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
