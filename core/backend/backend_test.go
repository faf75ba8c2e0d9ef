package backend

import (
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joeshaw/envdecode"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"github.com/autotrack-work/backend/core/client"
	"github.com/autotrack-work/backend/core/csql"
	"github.com/autotrack-work/backend/core/kss"
)

// TestService holds the configuration for the unit tests
//
// use POSTGRES="host=localhost port=5432 user=postgres dbname=postgres sslmode=disable"
// and POSTGRES_PASSWORD="docker"
type TestService struct {
	Postgres         string `env:"POSTGRES,required" description:"the connection string for the Postgres DB without password"`
	PostgresPassword string `env:"POSTGRES_PASSWORD,optional" description:"password to the Postgres DB"`
	backend          *Backend
	client           client.Client
	imageDir         string
}

var testService TestService

func TestMain(m *testing.M) {
	if err := envdecode.Decode(&testService); err != nil {
		panic(err)
	}

	db := csql.OpenWithSchema(testService.Postgres, testService.PostgresPassword, "_autotrack_unit_test_")
	defer db.Close()
	db.ClearSchema()

	imageDir, err := os.MkdirTemp("", "autotrack_images")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(imageDir)
	testService.imageDir = imageDir

	storage, err := kss.NewDriver(kss.Configuration{
		DriverType: kss.DriverTypeLocal,
		LocalConfiguration: &kss.LocalConfiguration{
			BasePath:  imageDir,
			PublicURL: "http://images.example.com",
		},
	})
	if err != nil {
		panic(err)
	}

	router := mux.NewRouter()
	testService.backend = MustNew(&Builder{
		DB:           db,
		Router:       router,
		Storage:      storage,
		UpdateSchema: true,
	})
	testService.client = client.NewWithRouter(router)

	code := m.Run()
	os.Exit(code)
}

func TestHealthCheck(t *testing.T) {
	var body []byte
	_, err := testService.client.RawGet("/", &body)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "AutoTrack API" {
		t.Fatalf("unexpected health check body %q", string(body))
	}
}

// createTestUser creates a user with a random firebase user id
func createTestUser(t *testing.T) User {
	t.Helper()
	u := User{
		FirebaseUserID: uuid.NewString(),
		UserEmail:      "driver@example.com",
		UserName:       "Test Driver",
	}
	if _, err := testService.client.RawPost("/api/users", &u, &u); err != nil {
		t.Fatal(err)
	}
	return u
}

// createTestCar creates a car owned by the given user
func createTestCar(t *testing.T, firebaseUserID string) Car {
	t.Helper()
	request := struct {
		Car            Car    `json:"car"`
		FirebaseUserID string `json:"firebase_user_id"`
	}{
		Car: Car{
			CarName:     "Civic",
			CarModelNum: "FK8",
			CarColor:    "red",
			CarMileage:  10000,
		},
		FirebaseUserID: firebaseUserID,
	}
	var car Car
	if _, err := testService.client.RawPost("/api/cars", &request, &car); err != nil {
		t.Fatal(err)
	}
	return car
}

func testDate(t *testing.T, value string) time.Time {
	t.Helper()
	date, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatal(err)
	}
	return date
}

func expectStatus(t *testing.T, expected, got int, what string) {
	t.Helper()
	if got != expected {
		t.Fatalf("%s: expected status %d, got %d", what, expected, got)
	}
}

func TestUnknownRoute(t *testing.T) {
	status, err := testService.client.RawGetStatus("/api/no_such_route", nil)
	if err != nil {
		t.Fatal(err)
	}
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown route, got %d", status)
	}
}
