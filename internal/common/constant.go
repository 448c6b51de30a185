// Package common holds the sentinel errors and wire constants that the
// server and the command line client agree on. Match errors with errors.Is.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// AuthorizationHeader and BearerPrefix carry the access token over HTTP.
const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
)

// TimezoneHeader lets HTTP clients name the IANA zone their calendar lives in.
const TimezoneHeader = "X-Timezone"
