package dvtypes

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Guid is a minimal uniqueidentifier representation: 16 bytes, formatted
// the way the data platform prints them (lowercase, hyphenated).
type Guid [16]byte

// ParseGuid parses a hyphenated or bare hex GUID string.
func ParseGuid(s string) (Guid, error) {
	hexPart := strings.ReplaceAll(s, "-", "")
	if len(hexPart) != 32 {
		return Guid{}, fmt.Errorf("dvtypes: invalid guid %q", s)
	}
	b, err := hex.DecodeString(hexPart)
	if err != nil {
		return Guid{}, fmt.Errorf("dvtypes: invalid guid %q: %w", s, err)
	}
	var g Guid
	copy(g[:], b)
	return g, nil
}

func (g Guid) String() string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", g[0:4], g[4:6], g[6:8], g[8:10], g[10:16])
}

func (g Guid) Equal(other Guid) bool {
	return g == other
}

// EntityReference is the nullable-domain value for lookup/customer/owner
// attributes: the referenced entity's logical name plus its id.
type EntityReference struct {
	LogicalName string
	ID          Guid
	Name        string // optional formatted/display value, for aliased results
}

func (r EntityReference) String() string {
	return fmt.Sprintf("%s:%s", r.LogicalName, r.ID)
}
