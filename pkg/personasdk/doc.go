/*
Package personasdk is a client for the Persona identity service.

# Overview

Persona owns users and OAuth tokens. Applications use this package to check
bearer tokens presented to them, to obtain client-credential tokens of their
own, and to look up user profiles. Results of successful Persona calls are
memoized in a token cache (Redis by default) so hot paths avoid a network
round trip.

	cfg := personasdk.Config{
		PersonaHost:         "https://users.example.com",
		PersonaOAuthRoute:   "/oauth/tokens",
		TokenCacheRedisHost: "localhost",
		TokenCacheRedisPort: 6379,
		TokenCacheRedisDB:   personasdk.Int(2),
	}
	client, err := personasdk.New(cfg)

Configuration may also be read from the environment with LoadConfigFromEnv.

# Validating tokens

	v, err := client.ValidateToken(ctx, r, personasdk.ValidateParams{Scope: "su"})
	switch {
	case err != nil:
		// no token on the request, or the cache is down
	case !v.Verified():
		// reject with 401
	}

The token is taken from ValidateParams.AccessToken, else the Authorization
Bearer header, else the access_token query parameter, else the access_token
form field. A cached "OK" for the token (and scope) answers immediately with
VerifiedByCache. Otherwise Persona is asked with a HEAD request and only a 204
answer counts; the positive answer is cached for 60 seconds and
VerifiedByPersona is returned.

# Obtaining tokens

	tok, err := client.ObtainNewToken(ctx, r, clientID, clientSecret, personasdk.ObtainParams{})

Issued tokens are cached under a key derived from an HMAC of the client id so
the secret never appears in the cache. They are kept for expires_in minus 60
seconds. ObtainParams.SkipCache disables both lookup and write.

# Errors

Configuration problems, a missing token, an unreachable cache and non-200
answers from the issuance or user endpoints are returned as errors. Match
them with errors.Is against the package sentinels; *RemoteError carries the
HTTP status. An invalid token is not an error: ValidateToken returns
NotVerified.
*/
package personasdk
