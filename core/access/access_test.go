package access

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/joeshaw/envdecode"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"github.com/autotrack-work/backend/core/csql"
	"github.com/autotrack-work/backend/core/registry"
)

// TestService holds the configuration for the access tests
//
// use POSTGRES="host=localhost port=5432 user=postgres dbname=postgres sslmode=disable"
// and POSTGRES_PASSWORD="docker"
type TestService struct {
	Postgres         string `env:"POSTGRES,required" description:"the connection string for the Postgres DB without password"`
	PostgresPassword string `env:"POSTGRES_PASSWORD,optional" description:"password to the Postgres DB"`
}

var (
	testService TestService
	testDB      *csql.DB
)

func TestMain(m *testing.M) {
	if err := envdecode.Decode(&testService); err != nil {
		panic(err)
	}
	testDB = csql.OpenWithSchema(testService.Postgres, testService.PostgresPassword, "_access_unit_test_")
	defer testDB.Close()
	testDB.ClearSchema()

	code := m.Run()
	os.Exit(code)
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if identity := IdentityFromContext(ctx); identity != "" {
		t.Fatalf("unexpected identity %q", identity)
	}
	ctx = ContextWithIdentity(ctx, "uid1")
	if identity := IdentityFromContext(ctx); identity != "uid1" {
		t.Fatalf("expected uid1, got %q", identity)
	}
}

func TestMissingProjectID(t *testing.T) {
	router := mux.NewRouter()
	router.Use(NewFirebaseMiddleware(&FirebaseMiddlewareBuilder{DB: testDB}))
	router.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != `{"code":"config/missing-project-id","message":"Firebase project ID is missing."}` {
		t.Fatalf("unexpected body %s", body)
	}
}

// testKeySetup signs tokens with a locally generated key and plants the
// matching public key in the certificate cache, so no network access is
// needed for verification.
func testKeySetup(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	public, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	pemKey := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: public}))
	jwtRegistry := registry.New(testDB).Accessor("_jwt_")
	if err := jwtRegistry.Write(googleCertificatesURL, map[string]string{"testkid": pemKey}); err != nil {
		t.Fatal(err)
	}
	return key
}

func signTestToken(t *testing.T, key *rsa.PrivateKey, claims jwt.RegisteredClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "testkid"
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestFirebaseMiddleware(t *testing.T) {
	key := testKeySetup(t)
	projectID := "autotrack-test"

	var seenIdentity string
	router := mux.NewRouter()
	router.Use(NewFirebaseMiddleware(&FirebaseMiddlewareBuilder{ProjectID: projectID, DB: testDB}))
	router.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {
		seenIdentity = IdentityFromContext(r.Context())
	})

	request := func(authorization string) int {
		r := httptest.NewRequest(http.MethodGet, "/x", nil)
		if authorization != "" {
			r.Header.Set("Authorization", authorization)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, r)
		return rec.Code
	}

	if code := request(""); code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", code)
	}
	if code := request("null"); code != http.StatusUnauthorized {
		t.Fatalf("null token: expected 401, got %d", code)
	}
	if code := request("Bearer garbage"); code != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", code)
	}

	now := time.Now()
	valid := jwt.RegisteredClaims{
		Issuer:    "https://securetoken.google.com/" + projectID,
		Audience:  jwt.ClaimStrings{projectID},
		Subject:   "uid1",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	if code := request("Bearer " + signTestToken(t, key, valid)); code != http.StatusOK {
		t.Fatalf("valid token: expected 200, got %d", code)
	}
	if seenIdentity != "uid1" {
		t.Fatalf("expected identity uid1, got %q", seenIdentity)
	}

	wrongAudience := valid
	wrongAudience.Audience = jwt.ClaimStrings{"some-other-project"}
	if code := request("Bearer " + signTestToken(t, key, wrongAudience)); code != http.StatusUnauthorized {
		t.Fatalf("wrong audience: expected 401, got %d", code)
	}

	wrongIssuer := valid
	wrongIssuer.Issuer = "https://example.com/" + projectID
	if code := request("Bearer " + signTestToken(t, key, wrongIssuer)); code != http.StatusUnauthorized {
		t.Fatalf("wrong issuer: expected 401, got %d", code)
	}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))
	if code := request("Bearer " + signTestToken(t, key, expired)); code != http.StatusUnauthorized {
		t.Fatalf("expired token: expected 401, got %d", code)
	}

	noSubject := valid
	noSubject.Subject = ""
	if code := request("Bearer " + signTestToken(t, key, noSubject)); code != http.StatusUnauthorized {
		t.Fatalf("token without subject: expected 401, got %d", code)
	}
}
