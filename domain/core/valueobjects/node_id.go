package valueobjects

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// NodeID is a value object representing a unique node identifier.
// Ids minted by the store are UUIDs; ids read back from persisted forests
// are accepted as opaque non-blank strings.
type NodeID struct {
	value string
}

// NewNodeID creates a new random NodeID
func NewNodeID() NodeID {
	return NodeID{value: uuid.New().String()}
}

// NewNodeIDFromString creates a NodeID from an existing string
func NewNodeIDFromString(id string) (NodeID, error) {
	if strings.TrimSpace(id) == "" {
		return NodeID{}, errors.New("node ID cannot be empty")
	}
	return NodeID{value: id}, nil
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return id.value
}

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool {
	return id.value == other.value
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler so published events carry plain
// string ids. The zero id encodes as null.
func (id NodeID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(id.value)
}
