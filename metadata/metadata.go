// Package metadata defines the entity-metadata provider contract (§6.2) and
// a simple in-memory implementation used by tests and the reference CLI.
package metadata

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hollowloop/dvsql/dvtypes"
)

// AttributeMetadata describes one entity attribute.
type AttributeMetadata struct {
	LogicalName    string
	AttributeType  dvtypes.MetadataAttributeType
	IsValidForRead bool
}

// ManyToManyRelationship describes an intersect (N:N) relationship.
type ManyToManyRelationship struct {
	SchemaName       string
	Entity1IntersectAttribute string
	Entity2IntersectAttribute string
}

// EntityMetadata is the per-entity shape the provider returns (§6.2).
type EntityMetadata struct {
	LogicalName                string
	PrimaryIDAttribute         string
	IsIntersect                bool
	ManyToManyRelationships    []ManyToManyRelationship
	Attributes                 []AttributeMetadata
	DisplayName                string
	DisplayCollectionName      string
}

// Attribute looks up one attribute by logical name (case-insensitive).
func (e *EntityMetadata) Attribute(name string) (*AttributeMetadata, bool) {
	lower := strings.ToLower(name)
	for i := range e.Attributes {
		if strings.ToLower(e.Attributes[i].LogicalName) == lower {
			return &e.Attributes[i], true
		}
	}
	return nil, false
}

// SoleManyToMany returns the entity's only many-to-many relationship, which
// DELETE lowering needs for intersect-entity targets (§4.8).
func (e *EntityMetadata) SoleManyToMany() (*ManyToManyRelationship, error) {
	if len(e.ManyToManyRelationships) != 1 {
		return nil, fmt.Errorf("metadata: entity %q does not have exactly one many-to-many relationship (has %d)", e.LogicalName, len(e.ManyToManyRelationships))
	}
	return &e.ManyToManyRelationships[0], nil
}

// Provider is the metadata collaborator (§6.2): lookups are pure functions
// of an exact, lowercased entity name. Implementations own their own
// caching and concurrency (§5).
type Provider interface {
	Get(entityName string) (*EntityMetadata, error)
}

// InMemoryProvider is a Provider backed by a fixed map, used by tests and
// any caller that has already fetched/cached metadata some other way.
type InMemoryProvider struct {
	mu       sync.RWMutex
	entities map[string]*EntityMetadata
}

// NewInMemoryProvider builds a provider from the given entities.
func NewInMemoryProvider(entities ...*EntityMetadata) *InMemoryProvider {
	p := &InMemoryProvider{entities: make(map[string]*EntityMetadata, len(entities))}
	for _, e := range entities {
		p.entities[strings.ToLower(e.LogicalName)] = e
	}
	return p
}

func (p *InMemoryProvider) Get(entityName string) (*EntityMetadata, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entities[strings.ToLower(entityName)]
	if !ok {
		return nil, fmt.Errorf("metadata: unknown entity %q", entityName)
	}
	return e, nil
}

// Register adds or replaces an entity's metadata.
func (p *InMemoryProvider) Register(e *EntityMetadata) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.entities == nil {
		p.entities = make(map[string]*EntityMetadata)
	}
	p.entities[strings.ToLower(e.LogicalName)] = e
}
