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

// FuelEfficiency records one refueling of a car: the amount, the unit
// price and the mileage at the pump.
type FuelEfficiency struct {
	FeID        int64     `json:"fe_id"`
	CarID       int64     `json:"car_id"`
	FeDate      time.Time `json:"fe_date"`
	FeAmount    float64   `json:"fe_amount"`
	FeUnitPrice float64   `json:"fe_unitprice"`
	FeMileage   float64   `json:"fe_mileage"`
}

func scanFuelEfficiency(row rowScanner, f *FuelEfficiency) error {
	return row.Scan(&f.FeID, &f.CarID, &f.FeDate, &f.FeAmount, &f.FeUnitPrice, &f.FeMileage)
}

func (b *Backend) handleFuelEfficiencyRoutes() {
	schema := b.db.Schema
	logger.Default().Debugln("backend: handle fuel efficiency routes")

	readQuery := `SELECT fe_id, car_id, fe_date, fe_amount, fe_unitprice, fe_mileage FROM ` +
		schema + `.fuel_efficiencies `

	feList := func(w http.ResponseWriter, r *http.Request) {
		rows, err := b.db.Query(readQuery + `ORDER BY fe_id;`)
		if err != nil {
			internalError(w, r, err)
			return
		}
		defer rows.Close()
		list := []FuelEfficiency{}
		for rows.Next() {
			var f FuelEfficiency
			if err := scanFuelEfficiency(rows, &f); err != nil {
				internalError(w, r, err)
				return
			}
			list = append(list, f)
		}
		respondJSON(w, http.StatusOK, list)
	}

	feRead := func(w http.ResponseWriter, r *http.Request) {
		feID, err := strconv.ParseInt(mux.Vars(r)["fe_id"], 10, 64)
		if err != nil {
			invalidParameter(w, "fe_id")
			return
		}
		var f FuelEfficiency
		err = scanFuelEfficiency(b.db.QueryRow(readQuery+`WHERE fe_id = $1;`, feID), &f)
		if err == sql.ErrNoRows {
			notFound(w, "fuel efficiency")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, f)
	}

	feCreate := func(w http.ResponseWriter, r *http.Request) {
		var f FuelEfficiency
		if !b.decodeBody(w, r, "fuel_efficiency", &f) {
			return
		}
		if !b.carMustExist(w, r, f.CarID) {
			return
		}
		err := scanFuelEfficiency(b.db.QueryRow(`INSERT INTO `+schema+`.fuel_efficiencies
(car_id, fe_date, fe_amount, fe_unitprice, fe_mileage) VALUES ($1, $2, $3, $4, $5)
RETURNING fe_id, car_id, fe_date, fe_amount, fe_unitprice, fe_mileage;`,
			f.CarID, f.FeDate, f.FeAmount, f.FeUnitPrice, f.FeMileage), &f)
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, f)
	}

	feUpdate := func(w http.ResponseWriter, r *http.Request) {
		feID, err := strconv.ParseInt(mux.Vars(r)["fe_id"], 10, 64)
		if err != nil {
			invalidParameter(w, "fe_id")
			return
		}
		var f FuelEfficiency
		if !b.decodeBody(w, r, "fuel_efficiency", &f) {
			return
		}
		err = scanFuelEfficiency(b.db.QueryRow(`UPDATE `+schema+`.fuel_efficiencies
SET car_id = $2, fe_date = $3, fe_amount = $4, fe_unitprice = $5, fe_mileage = $6
WHERE fe_id = $1
RETURNING fe_id, car_id, fe_date, fe_amount, fe_unitprice, fe_mileage;`,
			feID, f.CarID, f.FeDate, f.FeAmount, f.FeUnitPrice, f.FeMileage), &f)
		if err == sql.ErrNoRows {
			notFound(w, "fuel efficiency")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, f)
	}

	feDelete := func(w http.ResponseWriter, r *http.Request) {
		feID, err := strconv.ParseInt(mux.Vars(r)["fe_id"], 10, 64)
		if err != nil {
			invalidParameter(w, "fe_id")
			return
		}
		res, err := b.db.Exec(`DELETE FROM `+schema+`.fuel_efficiencies WHERE fe_id = $1;`, feID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		if count, _ := res.RowsAffected(); count == 0 {
			notFound(w, "fuel efficiency")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	carFuelEfficiencies := b.carChildList(readQuery+`WHERE car_id = $1 ORDER BY fe_id;`,
		func(row rowScanner) (interface{}, error) {
			var f FuelEfficiency
			err := scanFuelEfficiency(row, &f)
			return f, err
		})

	b.api.Handle("/fuel_efficiencies", handlers.CompressHandler(http.HandlerFunc(feList))).
		Methods(http.MethodOptions, http.MethodGet)
	b.api.Handle("/fuel_efficiencies", handlers.CompressHandler(http.HandlerFunc(feCreate))).
		Methods(http.MethodOptions, http.MethodPost)
	b.api.Handle("/fuel_efficiencies/{fe_id}", handlers.CompressHandler(http.HandlerFunc(feRead))).
		Methods(http.MethodOptions, http.MethodGet)
	b.api.Handle("/fuel_efficiencies/{fe_id}", handlers.CompressHandler(http.HandlerFunc(feUpdate))).
		Methods(http.MethodOptions, http.MethodPut)
	b.api.Handle("/fuel_efficiencies/{fe_id}", handlers.CompressHandler(http.HandlerFunc(feDelete))).
		Methods(http.MethodOptions, http.MethodDelete)
	b.api.Handle("/cars/{car_id}/fuel_efficiency", handlers.CompressHandler(carFuelEfficiencies)).
		Methods(http.MethodOptions, http.MethodGet)
}
