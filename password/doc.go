// Package password hashes and verifies user passwords.
//
// Stored hashes are self-describing: bcrypt hashes start with "$2a$", "$2b$"
// or "$2y$" and argon2id hashes use the PHC string format
// "$argon2id$v=19$m=...,t=...,p=...$salt$hash". A Verifier dispatches on
// that prefix, so stores may hold a mix of both while new hashes use the
// configured Hasher.
//
// Plaintext passwords are compared as raw bytes without normalization and
// are never logged or wrapped into errors.
package password
