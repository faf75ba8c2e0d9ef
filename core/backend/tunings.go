package backend

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/autotrack-work/backend/core/logger"
)

// Tuning records an aftermarket modification of a car.
type Tuning struct {
	TuningID       int64   `json:"tuning_id"`
	CarID          int64   `json:"car_id"`
	TuningName     string  `json:"tuning_name"`
	TuningPrice    int     `json:"tuning_price"`
	TuningImageURL *string `json:"tuning_image_url"`
}

func scanTuning(row rowScanner, t *Tuning) error {
	var imageURL sql.NullString
	err := row.Scan(&t.TuningID, &t.CarID, &t.TuningName, &t.TuningPrice, &imageURL)
	if err != nil {
		return err
	}
	if imageURL.Valid {
		t.TuningImageURL = &imageURL.String
	} else {
		t.TuningImageURL = nil
	}
	return nil
}

func (b *Backend) handleTuningRoutes() {
	schema := b.db.Schema
	logger.Default().Debugln("backend: handle tuning routes")

	readQuery := `SELECT tuning_id, car_id, tuning_name, tuning_price, tuning_image_url FROM ` +
		schema + `.tunings `

	tuningList := func(w http.ResponseWriter, r *http.Request) {
		rows, err := b.db.Query(readQuery + `ORDER BY tuning_id;`)
		if err != nil {
			internalError(w, r, err)
			return
		}
		defer rows.Close()
		list := []Tuning{}
		for rows.Next() {
			var t Tuning
			if err := scanTuning(rows, &t); err != nil {
				internalError(w, r, err)
				return
			}
			list = append(list, t)
		}
		respondJSON(w, http.StatusOK, list)
	}

	tuningRead := func(w http.ResponseWriter, r *http.Request) {
		tuningID, err := strconv.ParseInt(mux.Vars(r)["tuning_id"], 10, 64)
		if err != nil {
			invalidParameter(w, "tuning_id")
			return
		}
		var t Tuning
		err = scanTuning(b.db.QueryRow(readQuery+`WHERE tuning_id = $1;`, tuningID), &t)
		if err == sql.ErrNoRows {
			notFound(w, "tuning")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, t)
	}

	tuningCreate := func(w http.ResponseWriter, r *http.Request) {
		var t Tuning
		if !b.decodeBody(w, r, "tuning", &t) {
			return
		}
		if !b.carMustExist(w, r, t.CarID) {
			return
		}
		err := scanTuning(b.db.QueryRow(`INSERT INTO `+schema+`.tunings
(car_id, tuning_name, tuning_price, tuning_image_url) VALUES ($1, $2, $3, $4)
RETURNING tuning_id, car_id, tuning_name, tuning_price, tuning_image_url;`,
			t.CarID, t.TuningName, t.TuningPrice, t.TuningImageURL), &t)
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, t)
	}

	tuningUpdate := func(w http.ResponseWriter, r *http.Request) {
		tuningID, err := strconv.ParseInt(mux.Vars(r)["tuning_id"], 10, 64)
		if err != nil {
			invalidParameter(w, "tuning_id")
			return
		}
		var t Tuning
		if !b.decodeBody(w, r, "tuning", &t) {
			return
		}
		err = scanTuning(b.db.QueryRow(`UPDATE `+schema+`.tunings
SET car_id = $2, tuning_name = $3, tuning_price = $4, tuning_image_url = $5
WHERE tuning_id = $1
RETURNING tuning_id, car_id, tuning_name, tuning_price, tuning_image_url;`,
			tuningID, t.CarID, t.TuningName, t.TuningPrice, t.TuningImageURL), &t)
		if err == sql.ErrNoRows {
			notFound(w, "tuning")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, t)
	}

	tuningDelete := func(w http.ResponseWriter, r *http.Request) {
		tuningID, err := strconv.ParseInt(mux.Vars(r)["tuning_id"], 10, 64)
		if err != nil {
			invalidParameter(w, "tuning_id")
			return
		}
		res, err := b.db.Exec(`DELETE FROM `+schema+`.tunings WHERE tuning_id = $1;`, tuningID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		if count, _ := res.RowsAffected(); count == 0 {
			notFound(w, "tuning")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	carTunings := b.carChildList(readQuery+`WHERE car_id = $1 ORDER BY tuning_id;`,
		func(row rowScanner) (interface{}, error) {
			var t Tuning
			err := scanTuning(row, &t)
			return t, err
		})

	b.api.Handle("/tunings", handlers.CompressHandler(http.HandlerFunc(tuningList))).
		Methods(http.MethodOptions, http.MethodGet)
	b.api.Handle("/tunings", handlers.CompressHandler(http.HandlerFunc(tuningCreate))).
		Methods(http.MethodOptions, http.MethodPost)
	b.api.Handle("/tunings/{tuning_id}", handlers.CompressHandler(http.HandlerFunc(tuningRead))).
		Methods(http.MethodOptions, http.MethodGet)
	b.api.Handle("/tunings/{tuning_id}", handlers.CompressHandler(http.HandlerFunc(tuningUpdate))).
		Methods(http.MethodOptions, http.MethodPut)
	b.api.Handle("/tunings/{tuning_id}", handlers.CompressHandler(http.HandlerFunc(tuningDelete))).
		Methods(http.MethodOptions, http.MethodDelete)
	b.api.Handle("/cars/{car_id}/tuning", handlers.CompressHandler(carTunings)).
		Methods(http.MethodOptions, http.MethodGet)
}
