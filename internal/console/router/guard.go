package router

// Guard returns the authentication guard. Routes named in public are always
// allowed. Any other route is allowed only while token returns a non-empty
// value, and otherwise redirects to login. The originally requested route is
// not remembered.
func Guard(public []string, login string, token func() string) GuardFunc {
	open := make(map[string]struct{}, len(public)+1)
	for _, name := range public {
		open[name] = struct{}{}
	}
	open[login] = struct{}{}

	return func(to, _ *Route) Decision {
		if _, ok := open[to.Name]; ok {
			return Allow()
		}
		if token() != "" {
			return Allow()
		}
		return RedirectTo(login)
	}
}
