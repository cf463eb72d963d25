package catalog

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleContributor Role = "contributor"
	RoleReader      Role = "reader"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleContributor, RoleReader:
		return true
	}
	return false
}

// Actor is the caller of a catalog operation. The zero value is an
// anonymous member of the public.
type Actor struct {
	Name string
	Role Role
}

func (a Actor) Anonymous() bool { return a.Name == "" }
func (a Actor) IsAdmin() bool   { return a.Role == RoleAdmin }

// CanWrite reports whether the actor may create and edit documents.
func (a Actor) CanWrite() bool {
	return a.Role == RoleAdmin || a.Role == RoleContributor
}

// CanSee reports whether d is visible to the actor: published documents to
// everyone, the rest to admins and to the contributor who posted them.
func (a Actor) CanSee(d *Document) bool {
	if d.Status == StatusPublished || a.IsAdmin() {
		return true
	}
	return !a.Anonymous() && d.PostedBy == a.Name
}

// CanEdit reports whether the actor may change d.
func (a Actor) CanEdit(d *Document) bool {
	if a.IsAdmin() {
		return true
	}
	return a.Role == RoleContributor && d.PostedBy == a.Name
}
