package domain

// Capability is what an operation needs from its caller.
type Capability string

const (
	CapabilitySelf  Capability = "self-access"
	CapabilityAdmin Capability = "administrator-access"
)

// Principal is an authenticated caller whose account was read from the store
// for the current request.
type Principal struct {
	Account *Account
	Session Session
}

// Allows reports whether the principal holds c.
func (p *Principal) Allows(c Capability) bool {
	if p == nil || p.Account == nil {
		return false
	}
	switch c {
	case CapabilitySelf:
		return true
	case CapabilityAdmin:
		return p.Account.IsAdmin()
	}
	return false
}

// Area is a client-side section of the application.
type Area string

const (
	AreaDashboard      Area = "dashboard"
	AreaAdminDashboard Area = "admin"
	AreaSettings       Area = "settings"
)

func (a Area) Valid() bool {
	return a == AreaDashboard || a == AreaAdminDashboard || a == AreaSettings
}

const (
	PathLogin          = "/login"
	PathDashboard      = "/dashboard"
	PathAdminDashboard = "/super"
	PathSettings       = "/settings"
)

// Decision is the outcome of a route check: either allow, or redirect.
type Decision struct {
	Allow      bool   `json:"allow"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// DecideRoute maps the caller's account (nil when unauthenticated) and the
// requested area to a decision.
func DecideRoute(acc *Account, area Area) Decision {
	if acc == nil {
		return Decision{RedirectTo: PathLogin}
	}
	switch area {
	case AreaAdminDashboard:
		if !acc.IsAdmin() {
			return Decision{RedirectTo: PathDashboard}
		}
	case AreaDashboard:
		if acc.IsAdmin() {
			return Decision{RedirectTo: PathAdminDashboard}
		}
	}
	return Decision{Allow: true}
}
