package auth

import "errors"

var (
	// ErrContradictoryRequirement is returned for a destination that is both guest-only
	// and protected.
	ErrContradictoryRequirement = errors.New("route cannot require no session and authentication")
	// ErrElevatedWithoutAuth is returned when an elevated role is required without authentication.
	ErrElevatedWithoutAuth = errors.New("route requiring elevated role must require authentication")
)

// RouteRequirement is the static access declaration of a destination.
type RouteRequirement struct {
	RequiresAuthentication bool `yaml:"requiresAuth"`
	RequiresElevatedRole   bool `yaml:"requiresAdmin"`
	RequiresNoSession      bool `yaml:"requiresGuest"`
}

// Validate rejects combinations the guard can never satisfy.
func (r RouteRequirement) Validate() error {
	if r.RequiresNoSession && (r.RequiresAuthentication || r.RequiresElevatedRole) {
		return ErrContradictoryRequirement
	}
	if r.RequiresElevatedRole && !r.RequiresAuthentication {
		return ErrElevatedWithoutAuth
	}
	return nil
}

// IsPublic reports whether the destination is reachable regardless of session state.
func (r RouteRequirement) IsPublic() bool {
	return !r.RequiresAuthentication && !r.RequiresNoSession
}

// DecisionKind enumerates navigation guard outcomes.
type DecisionKind int

const (
	DecisionProceed DecisionKind = iota
	DecisionRedirectToLogin
	DecisionRedirectToDefault
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionProceed:
		return "proceed"
	case DecisionRedirectToLogin:
		return "redirect-to-login"
	case DecisionRedirectToDefault:
		return "redirect-to-default"
	default:
		return "unknown"
	}
}

// Decision is the outcome of one guard evaluation.
// ReturnTo is only set for DecisionRedirectToLogin and may be empty.
type Decision struct {
	Kind     DecisionKind
	ReturnTo string
}

// Proceed admits the navigation.
func Proceed() Decision { return Decision{Kind: DecisionProceed} }

// RedirectToLogin sends the actor to the login destination, returning to returnTo afterwards.
func RedirectToLogin(returnTo string) Decision {
	return Decision{Kind: DecisionRedirectToLogin, ReturnTo: returnTo}
}

// RedirectToDefault sends the actor to the default authenticated destination.
func RedirectToDefault() Decision { return Decision{Kind: DecisionRedirectToDefault} }
