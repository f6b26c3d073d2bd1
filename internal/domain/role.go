package domain

// Role is the closed set of authorization roles a user can hold.
type Role string

// Known roles. Anything outside this set fails validation; authorization
// predicates never treat an unknown role as permissive.
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// ParseRole converts a raw label into a Role.
// Returns ErrInvalidRole for anything outside the known set.
func ParseRole(label string) (Role, error) {
	switch Role(label) {
	case RoleAdmin, RoleUser, RoleGuest:
		return Role(label), nil
	}
	return "", ErrInvalidRole
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}
