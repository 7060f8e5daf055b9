package credentials

import (
	"fmt"

	"github.com/fintrack-uy/fintrack/internal/env"
)

// EnvSource reads the session token from the FINTRACK_TOKEN environment
// variable. It cannot persist renewals.
type EnvSource struct{}

func NewEnvSource() *EnvSource {
	return &EnvSource{}
}

func (e *EnvSource) Token() (string, error) {
	token, ok := env.Get("FINTRACK_TOKEN")
	if !ok {
		return "", fmt.Errorf("FINTRACK_TOKEN is not set")
	}
	return token, nil
}
