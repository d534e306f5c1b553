package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/bethelevents/assessor/internal/models"
)

// shortCodeAlphabet omits characters that are easy to misread (0/O, 1/I).
const shortCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// MaxShortCodeLength bounds short codes so they stay distinguishable from long tokens.
const MaxShortCodeLength = 8

var shortCodePattern = regexp.MustCompile(`^[A-Z0-9]{1,8}$`)

// LooksLikeShortCode reports whether identifier has the short-code shape.
func LooksLikeShortCode(identifier string) bool {
	return shortCodePattern.MatchString(identifier)
}

// NewShortCode draws n characters from the short-code alphabet.
func NewShortCode(n int) (string, error) {
	if n < 1 || n > MaxShortCodeLength {
		return "", fmt.Errorf("short code length %d out of range", n)
	}
	limit := big.NewInt(int64(len(shortCodeAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		v, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(shortCodeAlphabet[v.Int64()])
	}
	return b.String(), nil
}

// NewFormToken returns an opaque URL-safe token. Its length keeps it outside
// the short-code pattern.
func NewFormToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FormLookup is the read side needed to resolve identifiers.
type FormLookup interface {
	GetFormByToken(ctx context.Context, token string) (*models.Form, error)
	GetFormByShortCode(ctx context.Context, code string) (*models.Form, error)
}

type resolveStrategy struct {
	name    string
	accepts func(identifier string) bool
	lookup  func(ctx context.Context, identifier string) (*models.Form, error)
}

// IdentifierResolver tries each lookup strategy in order. Short codes are tried
// first when the identifier has their shape; the long token is always the last resort
// so links issued before short codes existed keep working.
type IdentifierResolver struct {
	strategies []resolveStrategy
}

func NewIdentifierResolver(store FormLookup) *IdentifierResolver {
	return &IdentifierResolver{strategies: []resolveStrategy{
		{name: "short_code", accepts: LooksLikeShortCode, lookup: store.GetFormByShortCode},
		{name: "token", accepts: func(string) bool { return true }, lookup: store.GetFormByToken},
	}}
}

// Resolve finds the form behind identifier or fails with a not_found ServiceError.
func (r *IdentifierResolver) Resolve(ctx context.Context, identifier string) (*models.Form, error) {
	for _, s := range r.strategies {
		if !s.accepts(identifier) {
			continue
		}
		f, err := s.lookup(ctx, identifier)
		if err != nil {
			return nil, fmt.Errorf("lookup by %s: %w", s.name, err)
		}
		if f != nil {
			return f, nil
		}
	}
	return nil, NewNotFoundError("error.form_not_found")
}
