// Command ivfadc-admin exposes the engine's Prometheus metrics over
// HTTP behind a bearer-token JWT gate (github.com/golang-jwt/jwt/v5,
// HMAC-signed), served directly over net/http rather than through a
// full REST router.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	addr := flag.String("addr", ":9090", "listen address for the metrics endpoint")
	secret := flag.String("jwt-secret", "", "HMAC secret validating admin bearer tokens")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "ivfadc-admin: -jwt-secret is required")
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", requireBearerToken(*secret, promhttp.Handler()))

	fmt.Fprintf(os.Stderr, "ivfadc-admin: listening on %s\n", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		fmt.Fprintln(os.Stderr, "ivfadc-admin:", err)
		os.Exit(1)
	}
}

// requireBearerToken wraps next with an HMAC JWT bearer-token check:
// parses the Authorization header, validates the signing method, and
// rejects anything that doesn't verify against secret.
func requireBearerToken(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "missing or malformed Authorization header", http.StatusUnauthorized)
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
