// Package auth verifies API bearer tokens and maps them onto permission
// users.
//
// Tokens are HS256 JWTs issued by an external identity provider sharing the
// configured secret. The subject becomes the username and the "groups"
// claim the user's groups, which property object permissions are granted
// to. GenerateToken exists for tooling and tests.
package auth
