// Package test contains the integration tests, running against a real
// postgres in a container. Set FINQUEST_INTEGRATION to enable them.
package test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marcossouzacontrole-cpu/finquest/core/access"
	"github.com/marcossouzacontrole-cpu/finquest/core/backend"
	"github.com/marcossouzacontrole-cpu/finquest/core/csql"
)

const testTokenSecret = "integration-test-secret"

// IntegrationTestSuite starts one postgres container and one backend for
// all tests of the package.
type IntegrationTestSuite struct {
	suite.Suite
	container testcontainers.Container
	db        *csql.DB
	router    *mux.Router
	server    *httptest.Server
	issuer    *access.TokenIssuer
}

func (s *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:15",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "testuser",
				"POSTGRES_PASSWORD": "testpass",
				"POSTGRES_DB":       "testdb",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	s.Require().NoError(err)
	s.container = container

	host, err := container.Host(ctx)
	s.Require().NoError(err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	s.Require().NoError(err)
	dataSourceName := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable",
		host, port.Port())

	s.db = csql.New(dataSourceName, "finquest")
	s.Require().NoError(s.db.EnsureConnected(ctx))

	s.router = mux.NewRouter()
	backend.New(&backend.Builder{
		DB:           s.db,
		Router:       s.router,
		TokenSecret:  testTokenSecret,
		UpdateSchema: true,
	})
	s.issuer = access.NewTokenIssuer(testTokenSecret)
	s.server = httptest.NewServer(s.router)

	_, err = s.db.ExecContext(ctx, entityDDL(s.db.Schema))
	s.Require().NoError(err)
}

func (s *IntegrationTestSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		s.container.Terminate(context.Background())
	}
}

// entityDDL creates the entity tables the tests use.
func entityDDL(schema string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s."Goal" (
  id uuid DEFAULT uuid_generate_v4() PRIMARY KEY,
  created_by varchar NOT NULL,
  name varchar NOT NULL,
  target_amount numeric NOT NULL DEFAULT 0,
  current_amount numeric NOT NULL DEFAULT 0,
  status varchar NOT NULL DEFAULT 'forging'
);
CREATE TABLE IF NOT EXISTS %[1]s."FinTransaction" (
  id uuid DEFAULT uuid_generate_v4() PRIMARY KEY,
  created_by varchar NOT NULL,
  date date NOT NULL,
  value numeric NOT NULL,
  description varchar NOT NULL,
  type varchar NOT NULL,
  category varchar NOT NULL DEFAULT 'Sem Categoria',
  scheduled_transaction_id uuid
);
CREATE TABLE IF NOT EXISTS %[1]s."ScheduledTransaction" (
  id uuid DEFAULT uuid_generate_v4() PRIMARY KEY,
  created_by varchar NOT NULL,
  description varchar NOT NULL,
  value numeric NOT NULL,
  type varchar NOT NULL,
  category varchar NOT NULL DEFAULT 'Sem Categoria',
  next_date date NOT NULL,
  frequency varchar NOT NULL DEFAULT 'monthly',
  active boolean NOT NULL DEFAULT true
);
`, schema)
}
