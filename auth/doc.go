// Package auth provides stateless token authentication and role-based
// authorization for HTTP services.
//
// A Codec issues and verifies compact HS256 tokens. A Gate reads the bearer
// header of each request and attaches the verified Identity to the request
// context without ever rejecting the request itself. Routes declare their
// required roles in a Policy, and Require consults Decide before the handler
// runs, answering through a Responder with a uniform 401 or 403 body. An
// Authenticator turns username/password credentials into tokens using
// pluggable UserStore and PasswordVerifier collaborators.
package auth
