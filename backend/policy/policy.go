// Package policy decides whether an actor may change a resource.
package policy

// Decision is the outcome of a policy check.
type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

func (d Decision) Allowed() bool { return bool(d) }

// Actor is the authenticated caller.
type Actor struct {
	ID    string
	Role  string
	Group string
}

// Owned is implemented by resources mutable only by their owner.
type Owned interface {
	OwnerID() string
}

// CanMutate allows only the resource owner. Admins get no override.
func CanMutate(actor Actor, resource Owned) Decision {
	if actor.ID == "" || resource == nil {
		return Deny
	}
	return Decision(resource.OwnerID() == actor.ID)
}

// RequireRole allows actors holding one of roles.
func RequireRole(actor Actor, roles ...string) Decision {
	for _, r := range roles {
		if actor.Role == r {
			return Allow
		}
	}
	return Deny
}
