// Package permit implements the tri-state permission model and the
// dotted-path permission tree consumed by command assertions.
package permit

// Permit is the tri-state permission value.
type Permit int

const (
	// None means no permission is set at any matching level.
	None Permit = iota
	Allow
	Deny
)

func (p Permit) String() string {
	switch p {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "none"
	}
}

// ParsePermit maps a string to a Permit.  Unknown strings map to
// None.
func ParsePermit(s string) Permit {
	switch s {
	case "allow":
		return Allow
	case "deny":
		return Deny
	default:
		return None
	}
}

// Permissible answers permission checks for one subject.
type Permissible interface {
	// Check resolves a dotted permission path.  If no level of
	// the path has a permit set, Check returns def.  Check never
	// fails.
	Check(path string, def Permit) Permit
}
