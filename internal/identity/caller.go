package identity

// Caller is the authenticated identity attached to a request by the JWT
// middleware. Authentication itself (registration, sessions) lives outside
// this service; the ledger core only needs to know who is asking and
// whether they hold the admin role.
type Caller struct {
	UserID string
	Admin  bool
}

// CanAct reports whether the caller may operate on resources owned by the
// given user: owners and admins may, everyone else may not.
func (c Caller) CanAct(ownerUserID string) bool {
	return c.Admin || (c.UserID != "" && c.UserID == ownerUserID)
}
