// Package jwt issues and verifies short-lived principal tokens. A verified token
// names the principal a session is bound to; it carries no session data.
package jwt
