package backpack

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Signer produces the ED25519 request signatures Backpack expects on
// authenticated endpoints. Public data endpoints work without one.
type Signer struct {
	apiKey     string
	privateKey ed25519.PrivateKey
}

// NewSigner builds a signer from the base64-encoded API key (public key) and
// secret (private key seed).
func NewSigner(apiKey, apiSecret string) (*Signer, error) {
	seed, err := base64.StdEncoding.DecodeString(apiSecret)
	if err != nil {
		return nil, fmt.Errorf("decode api secret: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("api secret is %d bytes, want %d", len(seed), ed25519.SeedSize)
	}

	return &Signer{
		apiKey:     apiKey,
		privateKey: ed25519.NewKeyFromSeed(seed),
	}, nil
}

// Sign returns the base64 signature over the canonical message for an
// instruction: sorted query parameters followed by timestamp and window.
func (s *Signer) Sign(instruction string, params url.Values, timestamp int64, window int) string {
	parts := []string{"instruction=" + instruction}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+params.Get(k))
	}

	parts = append(parts,
		fmt.Sprintf("timestamp=%d", timestamp),
		fmt.Sprintf("window=%d", window),
	)

	message := strings.Join(parts, "&")
	sig := ed25519.Sign(s.privateKey, []byte(message))
	return base64.StdEncoding.EncodeToString(sig)
}

// APIKey exposes the key used for the X-API-Key header.
func (s *Signer) APIKey() string { return s.apiKey }
