// Package common contains shared constants and sentinel errors used across
// GophGuard components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// RequestIDHeaderName is the gRPC metadata key echoed back with the
// per-request identifier assigned by the server.
const RequestIDHeaderName = "x-request-id"
