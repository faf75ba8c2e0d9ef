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

// PeriodicInspection records a recurring legal inspection of a car
// together with its next due date.
type PeriodicInspection struct {
	PiID       int64     `json:"pi_id"`
	CarID      int64     `json:"car_id"`
	PiName     string    `json:"pi_name"`
	PiDate     time.Time `json:"pi_date"`
	PiNextDate time.Time `json:"pi_nextdate"`
}

func scanPeriodicInspection(row rowScanner, p *PeriodicInspection) error {
	return row.Scan(&p.PiID, &p.CarID, &p.PiName, &p.PiDate, &p.PiNextDate)
}

func (b *Backend) handlePeriodicInspectionRoutes() {
	schema := b.db.Schema
	logger.Default().Debugln("backend: handle periodic inspection routes")

	readQuery := `SELECT pi_id, car_id, pi_name, pi_date, pi_nextdate FROM ` +
		schema + `.periodic_inspections `

	piList := func(w http.ResponseWriter, r *http.Request) {
		rows, err := b.db.Query(readQuery + `ORDER BY pi_id;`)
		if err != nil {
			internalError(w, r, err)
			return
		}
		defer rows.Close()
		list := []PeriodicInspection{}
		for rows.Next() {
			var p PeriodicInspection
			if err := scanPeriodicInspection(rows, &p); err != nil {
				internalError(w, r, err)
				return
			}
			list = append(list, p)
		}
		respondJSON(w, http.StatusOK, list)
	}

	piRead := func(w http.ResponseWriter, r *http.Request) {
		piID, err := strconv.ParseInt(mux.Vars(r)["pi_id"], 10, 64)
		if err != nil {
			invalidParameter(w, "pi_id")
			return
		}
		var p PeriodicInspection
		err = scanPeriodicInspection(b.db.QueryRow(readQuery+`WHERE pi_id = $1;`, piID), &p)
		if err == sql.ErrNoRows {
			notFound(w, "periodic inspection")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, p)
	}

	piCreate := func(w http.ResponseWriter, r *http.Request) {
		var p PeriodicInspection
		if !b.decodeBody(w, r, "periodic_inspection", &p) {
			return
		}
		if !b.carMustExist(w, r, p.CarID) {
			return
		}
		err := scanPeriodicInspection(b.db.QueryRow(`INSERT INTO `+schema+`.periodic_inspections
(car_id, pi_name, pi_date, pi_nextdate) VALUES ($1, $2, $3, $4)
RETURNING pi_id, car_id, pi_name, pi_date, pi_nextdate;`,
			p.CarID, p.PiName, p.PiDate, p.PiNextDate), &p)
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, p)
	}

	piUpdate := func(w http.ResponseWriter, r *http.Request) {
		piID, err := strconv.ParseInt(mux.Vars(r)["pi_id"], 10, 64)
		if err != nil {
			invalidParameter(w, "pi_id")
			return
		}
		var p PeriodicInspection
		if !b.decodeBody(w, r, "periodic_inspection", &p) {
			return
		}
		err = scanPeriodicInspection(b.db.QueryRow(`UPDATE `+schema+`.periodic_inspections
SET car_id = $2, pi_name = $3, pi_date = $4, pi_nextdate = $5 WHERE pi_id = $1
RETURNING pi_id, car_id, pi_name, pi_date, pi_nextdate;`,
			piID, p.CarID, p.PiName, p.PiDate, p.PiNextDate), &p)
		if err == sql.ErrNoRows {
			notFound(w, "periodic inspection")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, p)
	}

	piDelete := func(w http.ResponseWriter, r *http.Request) {
		piID, err := strconv.ParseInt(mux.Vars(r)["pi_id"], 10, 64)
		if err != nil {
			invalidParameter(w, "pi_id")
			return
		}
		res, err := b.db.Exec(`DELETE FROM `+schema+`.periodic_inspections WHERE pi_id = $1;`, piID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		if count, _ := res.RowsAffected(); count == 0 {
			notFound(w, "periodic inspection")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	carPeriodicInspections := b.carChildList(readQuery+`WHERE car_id = $1 ORDER BY pi_id;`,
		func(row rowScanner) (interface{}, error) {
			var p PeriodicInspection
			err := scanPeriodicInspection(row, &p)
			return p, err
		})

	b.api.Handle("/periodic_inspections", handlers.CompressHandler(http.HandlerFunc(piList))).
		Methods(http.MethodOptions, http.MethodGet)
	b.api.Handle("/periodic_inspections", handlers.CompressHandler(http.HandlerFunc(piCreate))).
		Methods(http.MethodOptions, http.MethodPost)
	b.api.Handle("/periodic_inspections/{pi_id}", handlers.CompressHandler(http.HandlerFunc(piRead))).
		Methods(http.MethodOptions, http.MethodGet)
	b.api.Handle("/periodic_inspections/{pi_id}", handlers.CompressHandler(http.HandlerFunc(piUpdate))).
		Methods(http.MethodOptions, http.MethodPut)
	b.api.Handle("/periodic_inspections/{pi_id}", handlers.CompressHandler(http.HandlerFunc(piDelete))).
		Methods(http.MethodOptions, http.MethodDelete)
	b.api.Handle("/cars/{car_id}/periodic_inspection", handlers.CompressHandler(carPeriodicInspections)).
		Methods(http.MethodOptions, http.MethodGet)
}
