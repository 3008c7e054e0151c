package policy

// Scope walks a child resource up to the owner of its parent.
// Modules and lessons are owned by the instructor of their course.
type Scope struct {
	Parent Owned
}

func (s Scope) OwnerID() string {
	if s.Parent == nil {
		return ""
	}
	return s.Parent.OwnerID()
}

// Within wraps a child whose ownership is decided by parent.
func Within(parent Owned) Scope { return Scope{Parent: parent} }
