package domain

// Principal is the authoritative identity for a user: status, credential hash and roles.
type Principal struct {
	Subject      string
	PasswordHash string
	Active       bool
	Roles        []Role
}

// Authorities maps roles 1:1 into ROLE_-prefixed authority strings.
func (p *Principal) Authorities() []string {
	authorities := make([]string, 0, len(p.Roles))
	for _, role := range p.Roles {
		authorities = append(authorities, role.Authority())
	}
	return authorities
}
