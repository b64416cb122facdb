package router

// SessionView reports whether someone is logged in.
type SessionView interface {
	LoggedIn() bool
}

// Guard enforces route access policy: routes requiring auth send anonymous
// visitors to Login, and auth-only pages send logged-in users Home unless
// the route opts out with RedirectIfLoggedIn.
func Guard(sessions SessionView) Hook {
	return func(to, _ Route) Decision {
		loggedIn := sessions.LoggedIn()
		switch {
		case to.Meta.NeedsAuth() && !loggedIn:
			return Redirect(Login)
		case !to.Meta.NeedsAuth() && to.Meta.RedirectsLoggedIn() && loggedIn:
			return Redirect(Home)
		}
		return Allow()
	}
}
