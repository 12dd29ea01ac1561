package gate

// Named navigation destinations of the application shell.
const (
	RouteLanding           = "/"
	RouteSignIn            = "/signin"
	RouteAuthCallback      = "/auth/callback"
	RouteProfile           = "/profile"
	RouteDashboard         = "/dashboard"
	RouteDashboardChats    = "/dashboard/chats"
	RouteDashboardSkills   = "/dashboard/skills"
	RouteDashboardLearn    = "/dashboard/learn"
	RouteDashboardDiscover = "/dashboard/discover"
)
