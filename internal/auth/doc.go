// Package auth provides host-backed authentication and session tokens.
//
// Passwords are checked against the host user database (/etc/shadow under
// the hostfs root). Hash formats the process cannot verify natively are
// delegated to su(1) running behind a PTY.
//
// Session tokens are HS256 JWTs that carry only an opaque session id; the
// session state itself lives in a session store.
package auth
