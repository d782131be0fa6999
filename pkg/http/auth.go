package xhttp

import (
	"bytes"
	"crypto/subtle"
	"encoding/base64"
	"strconv"
)

var basicPrefix = []byte("Basic ")

// BasicAuthMiddleware rejects requests without matching HTTP Basic credentials.
// Paths listed in skipPaths (health, metrics) pass through.
func BasicAuthMiddleware(realm, user, password string) MiddlewareFunc {
	challenge := "Basic realm=" + strconv.Quote(realm)
	return func(next RequestHandler) RequestHandler {
		return func(ctx *RequestCtx) {
			if shouldSkip(string(ctx.Path())) {
				next(ctx)
				return
			}

			u, p, ok := parseBasicAuth(ctx.Request.Header.Peek("Authorization"))
			if !ok || !secureEqual(u, user) || !secureEqual(p, password) {
				ctx.Response.Header.Set("WWW-Authenticate", challenge)
				ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
				ctx.Response.SetStatusCode(StatusUnauthorized)
				ctx.Response.SetBodyString(`{"error":"unauthorized"}`)
				return
			}
			next(ctx)
		}
	}
}

func parseBasicAuth(header []byte) (user, password string, ok bool) {
	if len(header) < len(basicPrefix) || !bytes.EqualFold(header[:len(basicPrefix)], basicPrefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(string(header[len(basicPrefix):]))
	if err != nil {
		return "", "", false
	}
	i := bytes.IndexByte(decoded, ':')
	if i < 0 {
		return "", "", false
	}
	return string(decoded[:i]), string(decoded[i+1:]), true
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
