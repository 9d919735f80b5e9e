package auth

import (
	"context"

	"github.com/goliatone/go-property-dashboard/components/dashboard"
)

type contextKey string

const (
	contextKeyClaims contextKey = "auth.claims"
	contextKeyToken  contextKey = "auth.token"
)

// WithClaims stores validated claims in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, contextKeyClaims, claims)
}

// ClaimsFromContext extracts claims stored by WithClaims.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	if ctx == nil {
		return nil, false
	}
	claims, ok := ctx.Value(contextKeyClaims).(*Claims)
	return claims, ok && claims != nil
}

// WithToken stores the viewer's raw bearer token so outbound calls can act
// on the viewer's behalf.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextKeyToken, token)
}

// TokenFromContext returns the token stored by WithToken.
func TokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, _ := ctx.Value(contextKeyToken).(string)
	return token
}

// Viewer maps claims onto the dashboard viewer.
func (c *Claims) Viewer() dashboard.ViewerContext {
	if c == nil {
		return dashboard.ViewerContext{}
	}
	return dashboard.ViewerContext{
		UserID: c.Subject,
		Roles:  append([]string(nil), c.Roles...),
		Locale: c.Locale,
	}
}

// Activity maps claims onto the actor recorded with preference changes.
func (c *Claims) Activity() dashboard.ActivityContext {
	if c == nil {
		return dashboard.ActivityContext{}
	}
	return dashboard.ActivityContext{
		ActorID: c.Subject,
		UserID:  c.Subject,
		OrgID:   c.OrgID,
	}
}
