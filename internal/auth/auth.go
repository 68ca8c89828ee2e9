// Package auth decides whether a collect request may run and under which identity.
package auth

import (
	"context"
	"crypto/subtle"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mohammad-safakhou/arxiv-digest/config"
	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
)

// TokenUserID is the user id reported for static-token callers.
const TokenUserID = "token"

// IdentityResolver maps a session token to a user identity.
type IdentityResolver interface {
	ResolveUser(ctx context.Context, token string) (digest.AuthContext, error)
}

// Gate checks the static agent token first and falls back to session resolution.
type Gate struct {
	token     []byte
	tokenHash []byte
	resolver  IdentityResolver
	logger    *log.Logger
}

// NewGate builds a gate from the agent settings. resolver may be nil.
func NewGate(cfg config.AgentConfig, resolver IdentityResolver) *Gate {
	g := &Gate{
		resolver: resolver,
		logger:   log.New(log.Writer(), "[AUTH] ", log.LstdFlags),
	}
	if t := strings.TrimSpace(cfg.Token); t != "" {
		g.token = []byte(t)
	} else if h := strings.TrimSpace(cfg.TokenHash); h != "" {
		g.tokenHash = []byte(h)
	}
	return g
}

// SetLogger overrides the diagnostics logger.
func (g *Gate) SetLogger(l *log.Logger) {
	if l != nil {
		g.logger = l
	}
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header value, or "".
func BearerToken(header string) string {
	if len(header) > 7 && header[:7] == "Bearer " {
		return header[7:]
	}
	return ""
}

// Resolve returns the caller identity for the given Authorization header value, or
// digest.ErrUnauthorized.
func (g *Gate) Resolve(ctx context.Context, header string) (digest.AuthContext, error) {
	tok := BearerToken(header)
	if tok == "" {
		return digest.AuthContext{}, digest.ErrUnauthorized
	}
	if g.matchesStatic(tok) {
		return digest.AuthContext{Mode: digest.AuthModeToken, UserID: TokenUserID}, nil
	}
	if g.resolver != nil {
		id, err := g.resolver.ResolveUser(ctx, tok)
		if err == nil && id.UserID != "" {
			id.Mode = digest.AuthModeSupabase
			return id, nil
		}
		if err != nil {
			g.logger.Printf("session lookup rejected: %v", err)
		}
	}
	return digest.AuthContext{}, digest.ErrUnauthorized
}

// TokenIdentity is the identity used by in-process callers such as the scheduler and CLI.
func TokenIdentity() digest.AuthContext {
	return digest.AuthContext{Mode: digest.AuthModeToken, UserID: TokenUserID}
}

func (g *Gate) matchesStatic(tok string) bool {
	switch {
	case g.token != nil:
		return subtle.ConstantTimeCompare(g.token, []byte(tok)) == 1
	case g.tokenHash != nil:
		return bcrypt.CompareHashAndPassword(g.tokenHash, []byte(tok)) == nil
	default:
		return false
	}
}
