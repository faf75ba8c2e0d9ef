package access

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"

	"github.com/autotrack-work/backend/core/csql"
	"github.com/autotrack-work/backend/core/logger"
	"github.com/autotrack-work/backend/core/registry"
)

// googleCertificatesURL is the download url for the x509 certificates
// Google uses to sign Firebase ID tokens.
const googleCertificatesURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

// FirebaseMiddlewareBuilder is a helper builder for the Firebase token middleware
type FirebaseMiddlewareBuilder struct {
	// ProjectID is the Firebase project the tokens must belong to. Tokens
	// are only accepted with audience ProjectID and issuer
	// "https://securetoken.google.com/<ProjectID>".
	ProjectID string
	// DB is the postgres database. The middleware caches the Google signing
	// certificates in the database registry, so fresh processes do not have
	// to download them on every cold start.
	DB *csql.DB
}

type keySet struct {
	mutex       sync.RWMutex
	keys        map[string]interface{}
	refreshed   time.Time
	jwtRegistry registry.Accessor
}

func (k *keySet) lookup(kid string) (interface{}, bool) {
	k.mutex.RLock()
	key, ok := k.keys[kid]
	k.mutex.RUnlock()
	return key, ok
}

// refresh downloads the current certificates and stores them in the
// registry. Rate limited to one download per minute.
func (k *keySet) refresh() error {
	k.mutex.Lock()
	defer k.mutex.Unlock()
	if time.Since(k.refreshed) < time.Minute {
		return nil
	}
	res, err := http.Get(googleCertificatesURL)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	var certificates map[string]string
	if err := json.NewDecoder(res.Body).Decode(&certificates); err != nil {
		return err
	}
	k.jwtRegistry.Write(googleCertificatesURL, certificates)
	k.setCertificates(certificates)
	return nil
}

// setCertificates parses the PEM certificates. Callers must hold the write lock.
func (k *keySet) setCertificates(certificates map[string]string) {
	k.keys = map[string]interface{}{}
	for kid, cert := range certificates {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cert))
		if err != nil {
			logger.Default().WithError(err).Warning("certificate error for kid ", kid)
		} else {
			k.keys[kid] = key
		}
	}
	k.refreshed = time.Now()
}

// NewFirebaseMiddleware returns a middleware handler to validate Firebase
// ID tokens, accepted as "Authorization: Bearer" header.
//
// The verified firebase user id is stored in the request context and in
// the request logger. Requests without a valid token are rejected with
// http.StatusUnauthorized; the health-check route is mounted outside the
// api subrouter and therefore not affected.
//
// If no project id is configured, the middleware does not authenticate
// anything and responds with a configuration error envelope instead,
// like the original deployment did.
func NewFirebaseMiddleware(fmb *FirebaseMiddlewareBuilder) mux.MiddlewareFunc {

	if fmb.ProjectID == "" {
		return func(h http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"code":"config/missing-project-id","message":"Firebase project ID is missing."}`))
			})
		}
	}

	issuer := "https://securetoken.google.com/" + fmb.ProjectID

	keys := &keySet{jwtRegistry: registry.New(fmb.DB).Accessor("_jwt_")}
	var certificates map[string]string
	timestamp, err := keys.jwtRegistry.Read(googleCertificatesURL, &certificates)
	if err != nil {
		panic(err)
	}
	keys.mutex.Lock()
	keys.setCertificates(certificates)
	keys.mutex.Unlock()
	if time.Since(timestamp) > 6*time.Hour {
		// time to check for new certificates
		if err := keys.refresh(); err != nil {
			logger.Default().WithError(err).Warning("cannot download signing certificates")
		}
	}

	jwksLookup := func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != "RS256" {
			return nil, fmt.Errorf("unexpected signing method %s", token.Method.Alg())
		}
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, errors.New("token has no kid")
		}
		if key, ok := keys.lookup(kid); ok {
			return key, nil
		}
		// the signing keys rotate, maybe we have stale certificates
		if err := keys.refresh(); err == nil {
			if key, ok := keys.lookup(kid); ok {
				return key, nil
			}
		}
		return nil, errors.New("cannot verify token")
	}

	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity := IdentityFromContext(r.Context()); len(identity) > 0 {
				h.ServeHTTP(w, r) // already authenticated
				return
			}

			tokenString := ""
			bearer := r.Header.Get("Authorization")
			if len(bearer) > 0 && bearer != "null" {
				if len(bearer) >= 8 && strings.ToLower(bearer[:7]) == "bearer " {
					tokenString = bearer[7:]
				} else {
					tokenString = bearer
				}
			}
			if len(tokenString) == 0 {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims := jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, jwksLookup)
			if err != nil || !token.Valid ||
				claims.Issuer != issuer ||
				!claims.VerifyAudience(fmb.ProjectID, true) ||
				claims.Subject == "" {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			// the subject of a Firebase ID token is the firebase user id
			ctx := ContextWithIdentity(r.Context(), claims.Subject)
			ctx, _ = logger.ContextWithLoggerIdentity(ctx, claims.Subject)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
