// Package rbac implements the authentication and authorization core of a
// role-based access control backend: bcrypt credential hashing, JWT
// issuance, store-backed session binding, and the identity resolver that
// guards protected HTTP operations.
//
// Session model:
//   - A user holds at most one live token, persisted on the user row. A new
//     login overwrites the previous token, so the old session is revoked the
//     moment the new one is bound.
//   - Resolving an identity requires both a valid signature and a matching
//     store binding. A token that verifies cryptographically but no longer
//     matches the stored value (logout, supersession, deleted account) is
//     rejected with the same generic unauthorized error.
//
// Transport and persistence are pluggable: HTTP handlers live behind
// go-router contexts, and the repositories are built on Bun so the backing
// store can be sqlite in tests and Postgres in production.
package rbac
