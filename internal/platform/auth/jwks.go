package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

const (
	defaultKeySetTTL   = 5 * time.Minute
	keySetFetchTimeout = 10 * time.Second
)

var errUnknownKey = errors.New("signing key not in key set")

type jsonWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// KeySet caches the identity provider's RSA signing keys by kid. An unknown
// kid or an expired set triggers one refresh shared by concurrent callers.
// The previous keys stay in use when a refresh fails.
type KeySet struct {
	url    string
	ttl    time.Duration
	client *http.Client
	group  singleflight.Group

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewKeySet(url string, ttl time.Duration) *KeySet {
	return &KeySet{
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: keySetFetchTimeout},
		keys:   map[string]*rsa.PublicKey{},
	}
}

// Key returns the public key published under kid.
func (s *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	key, ok := s.keys[kid]
	fresh := time.Since(s.fetchedAt) < s.ttl
	s.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	_, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		return nil, s.refresh(ctx)
	})

	s.mu.RLock()
	defer s.mu.RUnlock()
	if key, ok := s.keys[kid]; ok {
		return key, nil
	}
	if err != nil {
		return nil, fmt.Errorf("refresh key set: %w", err)
	}
	return nil, fmt.Errorf("%w: kid %q", errUnknownKey, kid)
}

func (s *KeySet) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("key set endpoint returned %d", resp.StatusCode)
	}

	var body struct {
		Keys []jsonWebKey `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode key set: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(body.Keys))
	for _, k := range body.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		if pub, err := k.rsaKey(); err == nil {
			keys[k.Kid] = pub
		}
	}

	s.mu.Lock()
	s.keys = keys
	s.fetchedAt = time.Now()
	s.mu.Unlock()
	return nil
}

func (k jsonWebKey) rsaKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	exp := new(big.Int).SetBytes(e)
	if len(n) == 0 || !exp.IsInt64() || exp.Int64() < 3 {
		return nil, errors.New("malformed rsa key")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}

// keyFunc resolves a token's kid against s.
func (s *KeySet) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return s.Key(ctx, kid)
	}
}
