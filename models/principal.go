package models

// Wildcard grants unrestricted access for a permission dimension.
const Wildcard = "*"

// Permissions lists the databases, tables and columns a principal may see.
// Column entries are either bare column names or qualified "table.column".
type Permissions struct {
	Databases []string `json:"databases"`
	Tables    []string `json:"tables"`
	Columns   []string `json:"columns"`
}

// Principal is an authenticated identity with its permission set.
// It is loaded once at authentication time and never mutated while a
// query pipeline is running.
type Principal struct {
	UserID   uint     `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`

	Permissions Permissions `json:"permissions"`

	// Optional database-level credentials for connection-scoped execution.
	// Empty when the principal has no dedicated database account.
	DBUser     string `json:"-"`
	DBPassword string `json:"-"`
}

// HasRole reports whether the principal carries the given role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the principal has the admin role.
func (p *Principal) IsAdmin() bool {
	return p.HasRole("admin")
}

// HasOwnDBCredentials reports whether connection-scoped execution can use
// a dedicated database account for this principal.
func (p *Principal) HasOwnDBCredentials() bool {
	return p.DBUser != ""
}
