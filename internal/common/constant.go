package common

// AuthorizationHeaderName carries "Bearer <access token>" on requests that
// authenticate with a token instead of email and password.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token in the Authorization header.
const BearerPrefix = "Bearer "

// RequestIDHeaderName is echoed on every response.
const RequestIDHeaderName = "X-Request-ID"
