package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenVersion identifies which generation of the minting contract an entity
// belongs to. Two generations coexist on chain and their numeric id spaces
// overlap, so an id is only unique together with its version.
type TokenVersion string

const (
	// VersionPre is the pre-migration contract generation
	VersionPre TokenVersion = "0"
	// VersionCurrent is the current contract generation
	VersionCurrent TokenVersion = "1"
)

// IsValidTokenVersion checks if a version tag is one of the two known generations
func IsValidTokenVersion(v TokenVersion) bool {
	return v == VersionPre || v == VersionCurrent
}

// EntityID is the composite identity shared by collections and iterations:
// a numeric id paired with the contract generation that issued it. For an
// iteration the version is the one of its issuing collection.
//
// EntityID is a comparable value type. Equality is structural, so freshly
// parsed ids can be used as map and loader keys directly.
type EntityID struct {
	ID      int64
	Version TokenVersion
}

// NewEntityID creates an EntityID from its parts
func NewEntityID(id int64, version TokenVersion) EntityID {
	return EntityID{ID: id, Version: version}
}

// ParseEntityID parses the canonical "{version}-{id}" form. Bare numeric
// input is accepted as a pre-migration id; clients predating the contract
// migration still send those.
func ParseEntityID(s string) (EntityID, error) {
	if s == "" {
		return EntityID{}, fmt.Errorf("%w: empty string", ErrInvalidEntityID)
	}

	version, rest, found := strings.Cut(s, "-")
	if !found {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id < 0 {
			return EntityID{}, fmt.Errorf("%w: %q", ErrInvalidEntityID, s)
		}
		return EntityID{ID: id, Version: VersionPre}, nil
	}

	if !IsValidTokenVersion(TokenVersion(version)) {
		return EntityID{}, fmt.Errorf("%w: unknown version tag in %q", ErrInvalidEntityID, s)
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id < 0 {
		return EntityID{}, fmt.Errorf("%w: %q", ErrInvalidEntityID, s)
	}

	return EntityID{ID: id, Version: TokenVersion(version)}, nil
}

// ParseEntityIDs parses a list of serialized ids. A single malformed id
// rejects the whole list.
func ParseEntityIDs(ss []string) ([]EntityID, error) {
	ids := make([]EntityID, len(ss))
	for i, s := range ss {
		id, err := ParseEntityID(s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// String returns the canonical "{version}-{id}" form, the exact inverse of
// ParseEntityID for all valid values
func (e EntityID) String() string {
	return fmt.Sprintf("%s-%d", e.Version, e.ID)
}

// ValidEntityID reports whether s parses as an EntityID. It never panics.
func ValidEntityID(s string) bool {
	_, err := ParseEntityID(s)
	return err == nil
}
