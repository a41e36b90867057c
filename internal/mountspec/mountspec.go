// Package mountspec holds the sandbox's configuration data model: the
// ordered list of user-requested mounts and the immutable Config they
// belong to. It has no dependency on the CLI framework so it can be
// unit-tested without constructing a cobra.Command.
package mountspec

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the mount behavior requested for one MountSpec.
type Kind int

const (
	// ReadWrite bind-mounts outside_path writable.
	ReadWrite Kind = iota
	// ReadOnly bind-mounts outside_path, then remounts it read-only.
	ReadOnly
	// Overlayed bind-mounts read-only, then layers a writable overlay
	// over the bind point so changes are visible inside the sandbox but
	// never touch outside_path itself.
	Overlayed
)

func (k Kind) String() string {
	switch k {
	case ReadWrite:
		return "rw"
	case ReadOnly:
		return "ro"
	case Overlayed:
		return "ov"
	default:
		return "unknown"
	}
}

// ParseKind converts the CLI's {rw,ro,ov} token to a Kind. An unrecognized
// token is reported rather than silently defaulting, since a typo'd mount
// kind is a configuration mistake worth failing loudly on — unlike the
// original C parser, which only warns and keeps going. Warning-and-
// defaulting matches what spec.md calls the original's surface; we
// upgrade this one case to an error because a silently-mismatched mount
// kind after a typo is a security-relevant surprise, not a cosmetic one.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "rw":
		return ReadWrite, nil
	case "ro":
		return ReadOnly, nil
	case "ov":
		return Overlayed, nil
	default:
		return 0, fmt.Errorf("unknown mount kind %q (want rw, ro, or ov)", s)
	}
}

// MarshalJSON renders a Kind as its CLI token, so a Config traveling
// across the self-reexec boundary in an environment variable reads the
// same way a human would type it.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON parses a Kind from its CLI token.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// MountSpec is one user-requested mount, in the order it was declared.
// Order is significant: World-mounter binds them front-to-back, and a
// later mount can legitimately shadow an earlier one.
type MountSpec struct {
	OutsidePath string `json:"outside_path"` // absolute host path
	MountPoint  string `json:"mount_point"`  // path relative to the container root
	Kind        Kind   `json:"kind"`
}

// ParseMountFlag parses one "--mount from:to[:kind]" value. The outside
// path must be absolute; this is the one case spec.md treats as a
// skip-and-continue mistake rather than a fatal one, because a single bad
// --mount among several shouldn't sink an otherwise-valid invocation.
func ParseMountFlag(raw string) (MountSpec, error) {
	from, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return MountSpec{}, fmt.Errorf("--mount %q: expected from:to[:kind]", raw)
	}
	if !strings.HasPrefix(from, "/") {
		return MountSpec{}, fmt.Errorf("--mount %q: outside path %q must be absolute", raw, from)
	}

	to := rest
	kindStr := ""
	if idx := strings.LastIndex(rest, ":"); idx >= 0 {
		to = rest[:idx]
		kindStr = rest[idx+1:]
	}

	kind, err := ParseKind(kindStr)
	if err != nil {
		return MountSpec{}, fmt.Errorf("--mount %q: %w", raw, err)
	}

	return MountSpec{OutsidePath: from, MountPoint: to, Kind: kind}, nil
}

// StrippedMountPoint strips leading slashes, turning an absolute
// in-container path into one suitable for filepath.Join with a root dir.
func StrippedMountPoint(mountPoint string) string {
	return strings.TrimLeft(mountPoint, "/")
}
