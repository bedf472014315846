// Package client talks to a GophGuard server over gRPC.
//
// GRPCClient keeps the token pair obtained by Login, injects the access
// token into every call through an interceptor and, when the server answers
// TOKEN_EXPIRED, rotates the pair with the refresh token and retries the
// call once.
//
// # Error Handling
//
// Status codes are mapped to ErrUnavailable, ErrUnauthorized and ErrLocked;
// callers match them with errors.Is.
package client
