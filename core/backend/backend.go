/*
Package backend implements the AutoTrack REST api.

Every route maps an HTTP verb and path to parameterized SQL against the
postgres database. Request bodies are validated against JSON schemas
before any statement runs; errors are translated into a uniform JSON
envelope.
*/
package backend

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/autotrack-work/backend/core/csql"
	"github.com/autotrack-work/backend/core/kss"
	"github.com/autotrack-work/backend/core/logger"
	"github.com/autotrack-work/backend/core/schema"
)

//go:embed schemas
var schemaFS embed.FS

// Backend is the AutoTrack rest backend
type Backend struct {
	db            *csql.DB
	router        *mux.Router
	api           *mux.Router
	storage       kss.Driver
	jsonValidator *schema.Validator
}

// Builder is a builder helper for the Backend
type Builder struct {
	// DB is a postgres database. This is mandatory.
	DB *csql.DB
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Storage is the object storage driver for image uploads. This is
	// optional; without it the image routes report a configuration error.
	Storage kss.Driver
	// Middleware is applied to all api routes, but not to the
	// health-check route. This is where the auth gate goes. Optional.
	Middleware mux.MiddlewareFunc
	// UpdateSchema creates the database relations if they do not exist
	UpdateSchema bool
}

// New realizes the actual backend. It creates the sql relations (if
// requested) and adds the actual routes to the router
func New(bb *Builder) (*Backend, error) {

	if bb.DB == nil {
		return nil, fmt.Errorf("DB is missing")
	}
	if bb.Router == nil {
		return nil, fmt.Errorf("Router is missing")
	}

	schemas, err := fs.Sub(schemaFS, "schemas")
	if err != nil {
		return nil, err
	}
	validator, err := schema.NewValidatorFromFS(schemas)
	if err != nil {
		return nil, fmt.Errorf("cannot compile request schemas: %w", err)
	}

	b := &Backend{
		db:            bb.DB,
		router:        bb.Router,
		storage:       bb.Storage,
		jsonValidator: validator,
	}

	if bb.UpdateSchema {
		if err := b.updateSchema(); err != nil {
			return nil, err
		}
	}

	b.handleCORS()
	logger.AddRequestID(b.router)

	b.router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("AutoTrack API"))
	}).Methods(http.MethodGet)

	b.api = b.router.PathPrefix("/api").Subrouter()
	if bb.Middleware != nil {
		b.api.Use(bb.Middleware)
	}
	b.handleRoutes()

	return b, nil
}

// MustNew is like New but panics on error
func MustNew(bb *Builder) *Backend {
	b, err := New(bb)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Backend) handleRoutes() {
	nillog := logger.FromContext(nil)
	nillog.Debugln("backend: handle routes")

	b.handleUserRoutes()
	b.handleCarRoutes()
	b.handleAccidentRoutes()
	b.handleFuelEfficiencyRoutes()
	b.handleMaintenanceRoutes()
	b.handlePeriodicInspectionRoutes()
	b.handleTuningRoutes()
	b.handleCarInspectionRoutes()
	b.handleImageRoutes()
}

// updateSchema creates the database relations. The database does not
// enforce the foreign keys; the cascade delete is done by the car
// delete handler in an explicit order.
func (b *Backend) updateSchema() error {
	schema := b.db.Schema
	statements := []string{
		`CREATE table IF NOT EXISTS ` + schema + `.users (
firebase_user_id varchar NOT NULL PRIMARY KEY,
user_email varchar NOT NULL,
user_name varchar NOT NULL
);`,
		`CREATE table IF NOT EXISTS ` + schema + `.cars (
car_id bigserial PRIMARY KEY,
car_name varchar NOT NULL,
carmodelnum varchar NOT NULL,
car_color varchar NOT NULL,
car_mileage integer NOT NULL,
car_isflooding integer NOT NULL,
car_issmoked integer NOT NULL,
car_image_url varchar
);`,
		`CREATE table IF NOT EXISTS ` + schema + `.user_car (
firebase_user_id varchar NOT NULL,
car_id bigint NOT NULL,
PRIMARY KEY (firebase_user_id, car_id)
);`,
		`CREATE table IF NOT EXISTS ` + schema + `.accidents (
accident_id bigserial PRIMARY KEY,
car_id bigint NOT NULL,
accident_date timestamptz NOT NULL,
accident_description varchar NOT NULL
);`,
		`CREATE table IF NOT EXISTS ` + schema + `.fuel_efficiencies (
fe_id bigserial PRIMARY KEY,
car_id bigint NOT NULL,
fe_date timestamptz NOT NULL,
fe_amount double precision NOT NULL,
fe_unitprice double precision NOT NULL,
fe_mileage double precision NOT NULL
);`,
		`CREATE table IF NOT EXISTS ` + schema + `.maintenances (
maint_id bigserial PRIMARY KEY,
car_id bigint NOT NULL,
maint_type varchar NOT NULL,
maint_title varchar NOT NULL,
maint_date timestamptz NOT NULL,
maint_description varchar NOT NULL
);`,
		`CREATE table IF NOT EXISTS ` + schema + `.periodic_inspections (
pi_id bigserial PRIMARY KEY,
car_id bigint NOT NULL,
pi_name varchar NOT NULL,
pi_date timestamptz NOT NULL,
pi_nextdate timestamptz NOT NULL
);`,
		`CREATE table IF NOT EXISTS ` + schema + `.tunings (
tuning_id bigserial PRIMARY KEY,
car_id bigint NOT NULL,
tuning_name varchar NOT NULL,
tuning_price integer NOT NULL,
tuning_image_url varchar
);`,
		`CREATE table IF NOT EXISTS ` + schema + `.car_inspections (
car_id bigint NOT NULL PRIMARY KEY,
is_kcar integer NOT NULL,
chassis_number_stamp_location varchar,
expiration_date varchar,
first_registration_year_month varchar,
model varchar,
axle_weight_ff double precision,
axle_weight_rr double precision,
noise_regulation varchar,
proximity_exhaust_noise_limit double precision,
fuel_type_code varchar,
car_registration_number varchar,
plate_count_size_preferred_number_identifier varchar,
chassis_number varchar,
engine_model varchar,
document_type varchar,
version_info_1 varchar,
version_info_2 varchar,
registration_version_info varchar,
model_specification_number_category_classification_number varchar,
system_id_1 varchar,
version_number_1 varchar,
axle_weight_fr double precision,
axle_weight_rf double precision,
drive_system varchar,
opacimeter_measured_car integer,
nox_pm_measurement_mode varchar,
nox_value double precision,
pm_value double precision,
safety_standard_application_date varchar,
system_id_2 varchar,
system_id_3 varchar,
version_number_2 varchar,
version_number_3 varchar,
k_axle_weight_fr double precision,
k_axle_weight_rf double precision,
k_drive_system varchar,
k_opacimeter_measured_car integer,
k_nox_pm_measurement_mode varchar,
k_nox_value double precision,
k_pm_value double precision,
preliminary_item varchar
);`,
	}

	for _, statement := range statements {
		if _, err := b.db.Exec(statement); err != nil {
			logger.FromContext(nil).WithError(err).Errorf("Error while updating schema when running: %s", statement)
			return err
		}
	}
	return nil
}
