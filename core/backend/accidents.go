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

// Accident records a damage event of a car.
type Accident struct {
	AccidentID          int64     `json:"accident_id"`
	CarID               int64     `json:"car_id"`
	AccidentDate        time.Time `json:"accident_date"`
	AccidentDescription string    `json:"accident_description"`
}

func scanAccident(row rowScanner, a *Accident) error {
	return row.Scan(&a.AccidentID, &a.CarID, &a.AccidentDate, &a.AccidentDescription)
}

func (b *Backend) handleAccidentRoutes() {
	schema := b.db.Schema
	logger.Default().Debugln("backend: handle accident routes")

	readQuery := `SELECT accident_id, car_id, accident_date, accident_description FROM ` + schema + `.accidents `

	accidentList := func(w http.ResponseWriter, r *http.Request) {
		rows, err := b.db.Query(readQuery + `ORDER BY accident_id;`)
		if err != nil {
			internalError(w, r, err)
			return
		}
		defer rows.Close()
		accidents := []Accident{}
		for rows.Next() {
			var a Accident
			if err := scanAccident(rows, &a); err != nil {
				internalError(w, r, err)
				return
			}
			accidents = append(accidents, a)
		}
		respondJSON(w, http.StatusOK, accidents)
	}

	accidentRead := func(w http.ResponseWriter, r *http.Request) {
		accidentID, err := strconv.ParseInt(mux.Vars(r)["accident_id"], 10, 64)
		if err != nil {
			invalidParameter(w, "accident_id")
			return
		}
		var a Accident
		err = scanAccident(b.db.QueryRow(readQuery+`WHERE accident_id = $1;`, accidentID), &a)
		if err == sql.ErrNoRows {
			notFound(w, "accident")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}

	accidentCreate := func(w http.ResponseWriter, r *http.Request) {
		var a Accident
		if !b.decodeBody(w, r, "accident", &a) {
			return
		}
		if !b.carMustExist(w, r, a.CarID) {
			return
		}
		err := scanAccident(b.db.QueryRow(`INSERT INTO `+schema+`.accidents
(car_id, accident_date, accident_description) VALUES ($1, $2, $3)
RETURNING accident_id, car_id, accident_date, accident_description;`,
			a.CarID, a.AccidentDate, a.AccidentDescription), &a)
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, a)
	}

	accidentUpdate := func(w http.ResponseWriter, r *http.Request) {
		accidentID, err := strconv.ParseInt(mux.Vars(r)["accident_id"], 10, 64)
		if err != nil {
			invalidParameter(w, "accident_id")
			return
		}
		var a Accident
		if !b.decodeBody(w, r, "accident", &a) {
			return
		}
		err = scanAccident(b.db.QueryRow(`UPDATE `+schema+`.accidents
SET car_id = $2, accident_date = $3, accident_description = $4 WHERE accident_id = $1
RETURNING accident_id, car_id, accident_date, accident_description;`,
			accidentID, a.CarID, a.AccidentDate, a.AccidentDescription), &a)
		if err == sql.ErrNoRows {
			notFound(w, "accident")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}

	accidentDelete := func(w http.ResponseWriter, r *http.Request) {
		accidentID, err := strconv.ParseInt(mux.Vars(r)["accident_id"], 10, 64)
		if err != nil {
			invalidParameter(w, "accident_id")
			return
		}
		res, err := b.db.Exec(`DELETE FROM `+schema+`.accidents WHERE accident_id = $1;`, accidentID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		if count, _ := res.RowsAffected(); count == 0 {
			notFound(w, "accident")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	carAccidents := b.carChildList(readQuery+`WHERE car_id = $1 ORDER BY accident_id;`,
		func(row rowScanner) (interface{}, error) {
			var a Accident
			err := scanAccident(row, &a)
			return a, err
		})

	b.api.Handle("/accidents", handlers.CompressHandler(http.HandlerFunc(accidentList))).
		Methods(http.MethodOptions, http.MethodGet)
	b.api.Handle("/accidents", handlers.CompressHandler(http.HandlerFunc(accidentCreate))).
		Methods(http.MethodOptions, http.MethodPost)
	b.api.Handle("/accidents/{accident_id}", handlers.CompressHandler(http.HandlerFunc(accidentRead))).
		Methods(http.MethodOptions, http.MethodGet)
	b.api.Handle("/accidents/{accident_id}", handlers.CompressHandler(http.HandlerFunc(accidentUpdate))).
		Methods(http.MethodOptions, http.MethodPut)
	b.api.Handle("/accidents/{accident_id}", handlers.CompressHandler(http.HandlerFunc(accidentDelete))).
		Methods(http.MethodOptions, http.MethodDelete)
	b.api.Handle("/cars/{car_id}/accident", handlers.CompressHandler(carAccidents)).
		Methods(http.MethodOptions, http.MethodGet)
}

// carMustExist checks the referenced car before a child row write. It
// writes the error response itself.
func (b *Backend) carMustExist(w http.ResponseWriter, r *http.Request, carID int64) bool {
	var exists bool
	err := b.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM `+b.db.Schema+`.cars WHERE car_id = $1);`,
		carID).Scan(&exists)
	if err != nil {
		internalError(w, r, err)
		return false
	}
	if !exists {
		referenceNotFound(w, "car")
		return false
	}
	return true
}
