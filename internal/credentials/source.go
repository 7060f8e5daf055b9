// Package credentials loads the login artifact — the bearer token the login
// flow produced — from wherever it lives so the session layer can be seeded
// with it.
package credentials

// Source provides the initial bearer token for a session.
type Source interface {
	Token() (string, error)
}

// Persister is implemented by sources that can store a renewed token so it
// survives restarts.
type Persister interface {
	Save(token string) error
}
