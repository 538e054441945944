package storeconnect

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Audience is the fixed aud claim App Store Connect expects.
	Audience = "appstoreconnect-v1"
	// TokenLifetime is the distance between iat and exp on every token.
	TokenLifetime = 1200 * time.Second
)

// Credentials identify an App Store Connect API key.
type Credentials struct {
	KeyID      string
	IssuerID   string
	PrivateKey string // PEM-encoded EC (P-256) private key, as downloaded (.p8)
}

// tokenClaims is the JWT payload. Scope limits the token to one request line.
// aud must encode as a plain string, so the registered claims are declared here
// rather than embedded from jwt.RegisteredClaims.
type tokenClaims struct {
	Issuer    string           `json:"iss"`
	IssuedAt  *jwt.NumericDate `json:"iat"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
	Audience  string           `json:"aud"`
	Scope     []string         `json:"scope"`
}

func (c tokenClaims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c tokenClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c tokenClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c tokenClaims) GetIssuer() (string, error)                   { return c.Issuer, nil }
func (c tokenClaims) GetSubject() (string, error)                  { return "", nil }

func (c tokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	if c.Audience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{c.Audience}, nil
}

// TokenIssuer signs ES256 bearer tokens scoped to a single GET request.
// It is safe for concurrent use.
type TokenIssuer struct {
	keyID    string
	issuerID string
	key      *ecdsa.PrivateKey
	now      func() time.Time

	mu         sync.Mutex
	expiration time.Time
}

// IssuerOption customizes a TokenIssuer.
type IssuerOption func(*TokenIssuer)

// WithClock overrides the time source used for iat/exp.
func WithClock(now func() time.Time) IssuerOption {
	return func(t *TokenIssuer) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTokenIssuer parses the credentials' private key and returns an issuer.
// An unusable key yields a *SigningConfigError.
func NewTokenIssuer(creds Credentials, opts ...IssuerOption) (*TokenIssuer, error) {
	key, err := parseSigningKey(creds.PrivateKey)
	if err != nil {
		return nil, &SigningConfigError{Err: err}
	}

	t := &TokenIssuer{
		keyID:    strings.TrimSpace(creds.KeyID),
		issuerID: strings.TrimSpace(creds.IssuerID),
		key:      key,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func parseSigningKey(pemKey string) (*ecdsa.PrivateKey, error) {
	if strings.TrimSpace(pemKey) == "" {
		return nil, fmt.Errorf("private key is empty")
	}
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(pemKey))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("private key curve %s is not P-256", key.Curve.Params().Name)
	}
	return key, nil
}

// Issue returns a compact JWT authorizing "GET {endpoint}?{query}".
// query must match the request's query string byte for byte.
func (t *TokenIssuer) Issue(endpoint, query string) (string, error) {
	issuedAt := t.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(TokenLifetime)

	claims := tokenClaims{
		Issuer:    t.issuerID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		Audience:  Audience,
		Scope:     []string{fmt.Sprintf("GET %s?%s", endpoint, query)},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = t.keyID

	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", &SigningConfigError{Err: fmt.Errorf("sign token: %w", err)}
	}

	t.mu.Lock()
	t.expiration = expiresAt
	t.mu.Unlock()

	return signed, nil
}

// Expiration reports the exp of the most recently issued token.
func (t *TokenIssuer) Expiration() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expiration
}

// PublicKey exposes the verification half of the signing key.
func (t *TokenIssuer) PublicKey() *ecdsa.PublicKey {
	return &t.key.PublicKey
}
