package test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/lib/pq"

	"github.com/autotrack-work/backend/core/backend"
	"github.com/autotrack-work/backend/core/client"
	"github.com/autotrack-work/backend/core/csql"
	"github.com/autotrack-work/backend/core/kss"
)

// IntegrationTestSuite starts a disposable Postgres container and runs
// the full api over a real http server.
type IntegrationTestSuite struct {
	suite.Suite
	*backend.Backend

	postgresContainer testcontainers.Container
	dbConn            *csql.DB
	router            *mux.Router
	srv               *http.Server
	imageDir          string

	Client client.Client
}

func (s *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	postgresUser := "testuser"
	postgresPassword := "testpass"
	postgresDB := "testdb"

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDB,
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	s.Require().NoError(err)
	s.postgresContainer = pgC

	pgHost, err := pgC.Host(ctx)
	s.Require().NoError(err)
	pgPort, err := pgC.MappedPort(ctx, "5432")
	s.Require().NoError(err)

	s.dbConn = csql.OpenWithSchema(fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		pgHost, pgPort.Port(), postgresUser, postgresDB), postgresPassword, "autotrack")

	s.imageDir = s.T().TempDir()
	storage, err := kss.NewDriver(kss.Configuration{
		DriverType: kss.DriverTypeLocal,
		LocalConfiguration: &kss.LocalConfiguration{
			BasePath:  s.imageDir,
			PublicURL: "http://images.example.com",
		},
	})
	s.Require().NoError(err)

	s.router = mux.NewRouter()
	s.Backend = backend.MustNew(&backend.Builder{
		DB:           s.dbConn,
		Router:       s.router,
		Storage:      storage,
		UpdateSchema: true,
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	s.srv = &http.Server{Handler: s.router}
	go s.srv.Serve(listener)

	url := "http://" + listener.Addr().String()
	s.Client = client.NewWithURL(url)

	// wait for the server to accept requests
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := s.Client.RawGet("/", nil); err == nil {
			break
		}
		if time.Now().After(deadline) {
			s.FailNow("server did not come up")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (s *IntegrationTestSuite) TearDownSuite() {
	ctx := context.Background()
	if s.srv != nil {
		s.srv.Shutdown(ctx)
	}
	if s.dbConn != nil {
		s.dbConn.Close()
	}
	if s.postgresContainer != nil {
		s.postgresContainer.Terminate(ctx)
	}
}
