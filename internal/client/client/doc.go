// Package client contains the client-side building blocks of the EchoLater CLI.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) used by
//     the CLI services: account calls (Register, Login, Logout), Ping, and the
//     idea calls (CreateIdea, ListIdeas, GetIdea, UpdateIdea, DeleteIdea).
//  2. A gRPC implementation (see GRPCClient) that injects the access token
//     through an interceptor, transparently refreshes it once when the
//     server reports it expired, and maps status codes to sentinel errors.
//  3. OpenSessionDB, which opens the local SQLite database and applies the
//     embedded goose migrations.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable, ErrUnauthorized, ErrNotFound, ErrForbidden,
// ErrInvalidArgument, ErrAlreadyExists and ErrNotLoggedIn.
package client
