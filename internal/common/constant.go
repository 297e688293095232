package common

// AuthorizationHeaderName carries the bearer credential on outbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// Endpoint paths relative to the API base URL.
const (
	LoginPath    = "/auth/login"
	RefreshPath  = "/auth/refresh"
	LogoutPath   = "/auth/logout"
	GridDataPath = "/eum/stp/getGridData"
)

// RefreshCookieName is the HttpOnly cookie holding the refresh credential.
const RefreshCookieName = "refresh_token"

// AnonymousUserID is sent as userId in request envelopes when nobody is logged in.
const AnonymousUserID = "null"

// DefaultGridUserID is the grid metadata userId used when no session user exists.
const DefaultGridUserID = "admin"
