// internal/vault/vault.go
//
// Vault client wrapper for the gateway.
//
// Context
// -------
// The only secret the gateway needs is the control-plane store password,
// referenced from config as `vault:<mount>/<path>#<key>`.  This wrapper
// hides the HashiCorp SDK behind two calls: New during boot, and
// ResolveRef when the config loader hands us a reference.  Values are
// cached per key so a config Reload does not hammer Vault.
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   – scheme and host of the Vault server.
// • VAULT_TOKEN  – initial token (falls back to ~/.vault-token).
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
)

// RefPrefix marks a config value that must be resolved through Vault.
const RefPrefix = "vault:"

// IsRef reports whether a config value is a Vault reference.
func IsRef(s string) bool { return strings.HasPrefix(s, RefPrefix) }

// Client is safe for concurrent use.  Create once at startup.  Zero value
// is invalid.
type Client struct {
	api *vault.Client

	cacheMu sync.RWMutex
	cache   map[string]cached // canonical path#key → value + expiry
}

type cached struct {
	val string
	exp time.Time
}

// New constructs a Vault client from the standard VAULT_* environment and
// starts a background token-renewal ticker bound to ctx.
func New(ctx context.Context) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := &Client{
		api:   apiCli,
		cache: make(map[string]cached),
	}
	go c.renewLoop(ctx)
	return c, nil
}

// ResolveRef expands `vault:<mount>/<path>#<key>` to the secret value.
// Non-reference strings are returned unchanged so callers can pass any
// config value through without checking first.
func (c *Client) ResolveRef(ctx context.Context, ref string) (string, error) {
	if !IsRef(ref) {
		return ref, nil
	}
	body := strings.TrimPrefix(ref, RefPrefix)
	path, key, ok := strings.Cut(body, "#")
	if !ok || path == "" || key == "" {
		return "", fmt.Errorf("malformed vault reference %q", ref)
	}
	return c.getKV(ctx, path, key, 5*time.Minute)
}

// getKV fetches a single key from a KV-v2 secret, caching the result for
// ttl when ttl > 0.
func (c *Client) getKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}

	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		if cv, ok := c.cache[canonical]; ok && time.Now().Before(cv.exp) {
			c.cacheMu.RUnlock()
			return cv.val, nil
		}
		c.cacheMu.RUnlock()
	}

	mount, rel := splitMount(secretPath)
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	return sval, nil
}

// renewLoop keeps the token alive.  The gateway reads one secret at boot,
// so a coarse periodic RenewSelf is plenty; failures are retried on the
// next tick.
func (c *Client) renewLoop(ctx context.Context) {
	t := time.NewTicker(15 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := c.api.Auth().Token().RenewSelf(0); err != nil {
				// Non-renewable or revoked tokens surface on next use.
				continue
			}
		}
	}
}

func splitMount(p string) (mount, rel string) {
	parts := strings.SplitN(p, "/", 2)
	mount = parts[0]
	if len(parts) == 2 {
		rel = parts[1]
	}
	return
}
