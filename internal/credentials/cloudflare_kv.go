//go:build js && wasm

package credentials

import (
	"encoding/json"
	"fmt"

	"github.com/syumai/workers/cloudflare/kv"
)

const (
	kvNamespaceBinding = "fintrack_kv"
	kvSessionKey       = "fintrack_session"
)

// KVSource keeps the session token in a Cloudflare KV namespace for the
// Workers build. The binding name is configured in wrangler.toml.
type KVSource struct {
	kvStore *kv.Namespace
}

func NewKVSource() (*KVSource, error) {
	kvStore, err := kv.NewNamespace(kvNamespaceBinding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize KV namespace: %w", err)
	}
	return &KVSource{kvStore: kvStore}, nil
}

func (k *KVSource) Token() (string, error) {
	raw, err := k.kvStore.GetString(kvSessionKey, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get session from KV: %w", err)
	}
	if raw == "" {
		return "", fmt.Errorf("no session found in KV")
	}

	var sf sessionFile
	if err := json.Unmarshal([]byte(raw), &sf); err != nil {
		return "", fmt.Errorf("failed to parse KV session: %w", err)
	}
	if sf.Session.Token == "" {
		return "", fmt.Errorf("KV session holds no token")
	}
	return sf.Session.Token, nil
}

// Save writes a renewed token back to KV.
func (k *KVSource) Save(token string) error {
	var sf sessionFile
	sf.Session.Token = token

	data, err := json.Marshal(sf)
	if err != nil {
		return fmt.Errorf("failed to marshal KV session: %w", err)
	}
	if err := k.kvStore.PutString(kvSessionKey, string(data), nil); err != nil {
		return fmt.Errorf("failed to store session in KV: %w", err)
	}
	return nil
}
