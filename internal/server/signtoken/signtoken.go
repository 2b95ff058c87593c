// Package signtoken issues the short-lived HMAC tokens that let an external
// signer (a board director or a co-founder) sign one document without an
// account. Tokens carry either {directorId, uid} or {founderId, founder_index}.
package signtoken

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dealflow/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleDirector = "director"
	RoleFounder  = "founder"
)

// Claims identify the signer slot a token unlocks.
type Claims struct {
	jwt.RegisteredClaims
	Workflow     string `json:"wf"`
	DirectorID   string `json:"directorId,omitempty"`
	UID          string `json:"uid,omitempty"`
	FounderID    string `json:"founderId,omitempty"`
	FounderIndex *int   `json:"founder_index,omitempty"`
}

// DirectorClaims targets director directorID on owner's document.
func DirectorClaims(workflow, owner, directorID string) Claims {
	return Claims{Workflow: workflow, DirectorID: directorID, UID: owner}
}

// FounderClaims targets co-founder number index on owner's document.
func FounderClaims(workflow, owner string, index int) Claims {
	return Claims{Workflow: workflow, FounderID: owner, FounderIndex: &index}
}

// Role reports which payload shape the claims carry.
func (c *Claims) Role() string {
	if c.FounderID != "" {
		return RoleFounder
	}
	return RoleDirector
}

// OwnerUID is the founder whose document the token belongs to.
func (c *Claims) OwnerUID() string {
	if c.Role() == RoleFounder {
		return c.FounderID
	}
	return c.UID
}

// SignerID is the id of the signer entry inside the owner's document.
func (c *Claims) SignerID() string {
	if c.Role() == RoleFounder {
		return CoFounderSignerID(*c.FounderIndex)
	}
	return c.DirectorID
}

// CoFounderSignerID names the signer entry of co-founder index.
func CoFounderSignerID(index int) string {
	return fmt.Sprintf("cofounder-%d", index)
}

func (c *Claims) validate() error {
	if c.Workflow == "" {
		return common.ErrInvalidToken
	}
	director := c.DirectorID != "" && c.UID != ""
	founder := c.FounderID != "" && c.FounderIndex != nil && *c.FounderIndex >= 0
	if director == founder {
		return common.ErrInvalidToken
	}
	return nil
}

// Issuer signs and verifies tokens with one HMAC secret.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret []byte) *Issuer {
	return &Issuer{secret: secret, now: time.Now}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	return &Issuer{secret: i.secret, now: now}
}

// Issue signs claims valid for ttl and returns the token and its expiry.
func (i *Issuer) Issue(claims Claims, ttl time.Duration) (string, time.Time, error) {
	if err := claims.validate(); err != nil {
		return "", time.Time{}, err
	}
	issued := i.now()
	expires := issued.Add(ttl)
	claims.IssuedAt = jwt.NewNumericDate(issued)
	claims.ExpiresAt = jwt.NewNumericDate(expires)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// Verify checks signature, algorithm, expiry and payload shape. Expired
// tokens yield common.ErrTokenExpired, any other failure common.ErrInvalidToken.
func (i *Issuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !parsed.Valid {
		return nil, common.ErrInvalidToken
	}
	if err := claims.validate(); err != nil {
		return nil, err
	}
	return claims, nil
}

// Hash is the digest stored server-side so a re-issued token invalidates
// the previous one without keeping tokens at rest.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
