package common

// AuthorizationHeaderName carries the bearer access token on inbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// DealNoLength is the number of digits in a display deal number.
const DealNoLength = 11

// MaxInsertAttempts bounds retries of inserts that race on a unique key
// (deal numbers, term-sheet versions).
const MaxInsertAttempts = 5
