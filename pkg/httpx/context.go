package httpx

import (
	"context"

	"github.com/aussiebroadwan/persona/pkg/personasdk"
)

type ctxKey string

const (
	ctxKeyToken        ctxKey = "access_token"
	ctxKeyVerification ctxKey = "verification"
)

func contextWithToken(ctx context.Context, token string, v personasdk.Verification) context.Context {
	ctx = context.WithValue(ctx, ctxKeyToken, token)
	return context.WithValue(ctx, ctxKeyVerification, v)
}

// TokenFromContext returns the bearer token accepted by RequireToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(ctxKeyToken).(string)
	return t, ok && t != ""
}

// VerificationFromContext reports how RequireToken verified the token.
func VerificationFromContext(ctx context.Context) personasdk.Verification {
	v, _ := ctx.Value(ctxKeyVerification).(personasdk.Verification)
	return v
}
