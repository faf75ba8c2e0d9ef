package backend

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/autotrack-work/backend/core/logger"
)

// Maintenance records a service event of a car. The title is derived
// from the category, see maintenanceTitle.
type Maintenance struct {
	MaintID          int64     `json:"maint_id"`
	CarID            int64     `json:"car_id"`
	MaintType        string    `json:"maint_type"`
	MaintTitle       string    `json:"maint_title"`
	MaintDate        time.Time `json:"maint_date"`
	MaintDescription string    `json:"maint_description"`
}

// canonical display titles per maintenance category
var maintenanceTitles = map[string]string{
	"OilChange":               "Oil Change",
	"OilFilterChange":         "Oil Filter Change",
	"HeadlightChange":         "Headlight Change",
	"PositionLampChange":      "Position Lamp Change",
	"FogLampChange":           "Fog Lamp Change",
	"TurnSignalChange":        "Turn Signal Change",
	"BrakeLightChange":        "Brake Light Change",
	"LicensePlateLightChange": "License Plate Light Change",
	"BackupLightChange":       "Backup Light Change",
	"CarWash":                 "Car Wash",
	"WiperBladeChange":        "Wiper Blade Change",
	"BrakePadChange":          "Brake Pad Change",
	"BrakeDiscChange":         "Brake Disc Change",
	"TireChange":              "Tire Change",
	"BatteryChange":           "Battery Change",
	"TimingBeltChange":        "Timing Belt Change",
	"CoolantRefill":           "Coolant Refill",
	"WasherFluidRefill":       "Washer Fluid Refill",
	"Other":                   "Other",
}

// maintenanceTitle returns the canonical display title for a known
// maintenance category. For unknown categories the client-supplied
// title is kept; when that is absent too, the raw category is the title.
func maintenanceTitle(maintType, clientTitle string) string {
	if title, ok := maintenanceTitles[maintType]; ok {
		return title
	}
	if clientTitle == "" {
		return maintType
	}
	return clientTitle
}

func scanMaintenance(row rowScanner, m *Maintenance) error {
	return row.Scan(&m.MaintID, &m.CarID, &m.MaintType, &m.MaintTitle, &m.MaintDate, &m.MaintDescription)
}

func (b *Backend) handleMaintenanceRoutes() {
	schema := b.db.Schema
	logger.Default().Debugln("backend: handle maintenance routes")

	readQuery := `SELECT maint_id, car_id, maint_type, maint_title, maint_date, maint_description FROM ` +
		schema + `.maintenances `

	maintenanceList := func(w http.ResponseWriter, r *http.Request) {
		rows, err := b.db.Query(readQuery + `ORDER BY maint_id;`)
		if err != nil {
			internalError(w, r, err)
			return
		}
		defer rows.Close()
		list := []Maintenance{}
		for rows.Next() {
			var m Maintenance
			if err := scanMaintenance(rows, &m); err != nil {
				internalError(w, r, err)
				return
			}
			list = append(list, m)
		}
		respondJSON(w, http.StatusOK, list)
	}

	maintenanceRead := func(w http.ResponseWriter, r *http.Request) {
		maintID, err := strconv.ParseInt(mux.Vars(r)["maint_id"], 10, 64)
		if err != nil {
			invalidParameter(w, "maint_id")
			return
		}
		var m Maintenance
		err = scanMaintenance(b.db.QueryRow(readQuery+`WHERE maint_id = $1;`, maintID), &m)
		if err == sql.ErrNoRows {
			notFound(w, "maintenance")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, m)
	}

	maintenanceCreate := func(w http.ResponseWriter, r *http.Request) {
		var m Maintenance
		if !b.decodeBody(w, r, "maintenance", &m) {
			return
		}
		if !b.carMustExist(w, r, m.CarID) {
			return
		}
		m.MaintTitle = maintenanceTitle(m.MaintType, m.MaintTitle)
		err := scanMaintenance(b.db.QueryRow(`INSERT INTO `+schema+`.maintenances
(car_id, maint_type, maint_title, maint_date, maint_description) VALUES ($1, $2, $3, $4, $5)
RETURNING maint_id, car_id, maint_type, maint_title, maint_date, maint_description;`,
			m.CarID, m.MaintType, m.MaintTitle, m.MaintDate, m.MaintDescription), &m)
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, m)
	}

	maintenanceUpdate := func(w http.ResponseWriter, r *http.Request) {
		maintID, err := strconv.ParseInt(mux.Vars(r)["maint_id"], 10, 64)
		if err != nil {
			invalidParameter(w, "maint_id")
			return
		}
		var m Maintenance
		if !b.decodeBody(w, r, "maintenance", &m) {
			return
		}
		m.MaintTitle = maintenanceTitle(m.MaintType, m.MaintTitle)
		err = scanMaintenance(b.db.QueryRow(`UPDATE `+schema+`.maintenances
SET car_id = $2, maint_type = $3, maint_title = $4, maint_date = $5, maint_description = $6
WHERE maint_id = $1
RETURNING maint_id, car_id, maint_type, maint_title, maint_date, maint_description;`,
			maintID, m.CarID, m.MaintType, m.MaintTitle, m.MaintDate, m.MaintDescription), &m)
		if err == sql.ErrNoRows {
			notFound(w, "maintenance")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, m)
	}

	maintenanceDelete := func(w http.ResponseWriter, r *http.Request) {
		maintID, err := strconv.ParseInt(mux.Vars(r)["maint_id"], 10, 64)
		if err != nil {
			invalidParameter(w, "maint_id")
			return
		}
		res, err := b.db.Exec(`DELETE FROM `+schema+`.maintenances WHERE maint_id = $1;`, maintID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		if count, _ := res.RowsAffected(); count == 0 {
			notFound(w, "maintenance")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	carMaintenances := b.carChildList(readQuery+`WHERE car_id = $1 ORDER BY maint_id;`,
		func(row rowScanner) (interface{}, error) {
			var m Maintenance
			err := scanMaintenance(row, &m)
			return m, err
		})

	b.api.Handle("/maintenances", handlers.CompressHandler(http.HandlerFunc(maintenanceList))).
		Methods(http.MethodOptions, http.MethodGet)
	b.api.Handle("/maintenances", handlers.CompressHandler(http.HandlerFunc(maintenanceCreate))).
		Methods(http.MethodOptions, http.MethodPost)
	b.api.Handle("/maintenances/{maint_id}", handlers.CompressHandler(http.HandlerFunc(maintenanceRead))).
		Methods(http.MethodOptions, http.MethodGet)
	b.api.Handle("/maintenances/{maint_id}", handlers.CompressHandler(http.HandlerFunc(maintenanceUpdate))).
		Methods(http.MethodOptions, http.MethodPut)
	b.api.Handle("/maintenances/{maint_id}", handlers.CompressHandler(http.HandlerFunc(maintenanceDelete))).
		Methods(http.MethodOptions, http.MethodDelete)
	b.api.Handle("/cars/{car_id}/maintenance", handlers.CompressHandler(carMaintenances)).
		Methods(http.MethodOptions, http.MethodGet)
}
