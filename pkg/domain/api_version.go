package domain

import (
	"fmt"
	"slices"
)

// APIVersion is a route or token API version. Tokens carry the version they
// were issued for; routes refuse tokens newer than themselves.
type APIVersion string

const APIVersionV1 APIVersion = "v1"

// supported lists known versions oldest first; the index is the ordering.
var supported = []APIVersion{APIVersionV1}

// ParseAPIVersion rejects anything not in the supported list.
func ParseAPIVersion(s string) (APIVersion, error) {
	v := APIVersion(s)
	if !slices.Contains(supported, v) {
		return "", fmt.Errorf("unknown API version: %q", s)
	}
	return v, nil
}

func (v APIVersion) String() string { return string(v) }

func (v APIVersion) IsNil() bool { return v == "" }

// IsAtLeast reports v >= other. Unknown versions sort below every known one,
// and an unknown v never satisfies the check.
func (v APIVersion) IsAtLeast(other APIVersion) bool {
	vi := slices.Index(supported, v)
	if vi < 0 {
		return false
	}
	return vi >= slices.Index(supported, other)
}

// SupportedVersions returns a copy of the known versions, oldest first.
func SupportedVersions() []APIVersion {
	return slices.Clone(supported)
}

// DefaultVersion is stamped into newly issued access tokens.
func DefaultVersion() APIVersion {
	return supported[len(supported)-1]
}
