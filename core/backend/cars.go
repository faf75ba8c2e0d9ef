package backend

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/autotrack-work/backend/core/logger"
)

// Car is a registered vehicle. The two condition flags are stored as
// integers in the database but travel as booleans in JSON.
type Car struct {
	CarID         int64   `json:"car_id"`
	CarName       string  `json:"car_name"`
	CarModelNum   string  `json:"carmodelnum"`
	CarColor      string  `json:"car_color"`
	CarMileage    int     `json:"car_mileage"`
	CarIsFlooding bool    `json:"car_isflooding"`
	CarIsSmoked   bool    `json:"car_issmoked"`
	CarImageURL   *string `json:"car_image_url"`
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCar(row rowScanner, c *Car) error {
	var flooding, smoked int
	var imageURL sql.NullString
	err := row.Scan(&c.CarID, &c.CarName, &c.CarModelNum, &c.CarColor, &c.CarMileage,
		&flooding, &smoked, &imageURL)
	if err != nil {
		return err
	}
	c.CarIsFlooding = flooding != 0
	c.CarIsSmoked = smoked != 0
	if imageURL.Valid {
		c.CarImageURL = &imageURL.String
	} else {
		c.CarImageURL = nil
	}
	return nil
}

func boolAsInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// carIDParam parses the car_id path parameter. It writes the error
// response itself when the parameter is not a number.
func carIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	carID, err := strconv.ParseInt(mux.Vars(r)["car_id"], 10, 64)
	if err != nil {
		invalidParameter(w, "car_id")
		return 0, false
	}
	return carID, true
}

func (b *Backend) handleCarRoutes() {
	schema := b.db.Schema
	logger.Default().Debugln("backend: handle car routes")

	readQuery := `SELECT car_id, car_name, carmodelnum, car_color, car_mileage,
car_isflooding, car_issmoked, car_image_url FROM ` + schema + `.cars `

	carList := func(w http.ResponseWriter, r *http.Request) {
		rows, err := b.db.Query(readQuery + `ORDER BY car_id;`)
		if err != nil {
			internalError(w, r, err)
			return
		}
		defer rows.Close()
		cars := []Car{}
		for rows.Next() {
			var c Car
			if err := scanCar(rows, &c); err != nil {
				internalError(w, r, err)
				return
			}
			cars = append(cars, c)
		}
		respondJSON(w, http.StatusOK, cars)
	}

	carRead := func(w http.ResponseWriter, r *http.Request) {
		carID, ok := carIDParam(w, r)
		if !ok {
			return
		}
		var c Car
		err := scanCar(b.db.QueryRow(readQuery+`WHERE car_id = $1;`, carID), &c)
		if err == sql.ErrNoRows {
			notFound(w, "car")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, c)
	}

	// create inserts the car and the ownership row in one transaction,
	// so an unknown owner never leaves an orphaned car behind
	carCreate := func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Car            Car    `json:"car"`
			FirebaseUserID string `json:"firebase_user_id"`
		}
		if !b.decodeBody(w, r, "car_create", &req) {
			return
		}
		tx, err := b.db.BeginTx(r.Context(), nil)
		if err != nil {
			internalError(w, r, err)
			return
		}
		var exists bool
		err = tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM `+schema+`.users WHERE firebase_user_id = $1);`,
			req.FirebaseUserID).Scan(&exists)
		if err != nil {
			tx.Rollback()
			internalError(w, r, err)
			return
		}
		if !exists {
			tx.Rollback()
			referenceNotFound(w, "user")
			return
		}
		c := req.Car
		err = scanCar(tx.QueryRow(`INSERT INTO `+schema+`.cars
(car_name, carmodelnum, car_color, car_mileage, car_isflooding, car_issmoked, car_image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING car_id, car_name, carmodelnum, car_color, car_mileage, car_isflooding, car_issmoked, car_image_url;`,
			c.CarName, c.CarModelNum, c.CarColor, c.CarMileage,
			boolAsInt(c.CarIsFlooding), boolAsInt(c.CarIsSmoked), c.CarImageURL), &c)
		if err != nil {
			tx.Rollback()
			internalError(w, r, err)
			return
		}
		_, err = tx.Exec(`INSERT INTO `+schema+`.user_car (firebase_user_id, car_id) VALUES ($1, $2);`,
			req.FirebaseUserID, c.CarID)
		if err != nil {
			tx.Rollback()
			internalError(w, r, err)
			return
		}
		if err = tx.Commit(); err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, c)
	}

	carUpdate := func(w http.ResponseWriter, r *http.Request) {
		carID, ok := carIDParam(w, r)
		if !ok {
			return
		}
		var req struct {
			Car Car `json:"car"`
		}
		if !b.decodeBody(w, r, "car_update", &req) {
			return
		}
		c := req.Car
		err := scanCar(b.db.QueryRow(`UPDATE `+schema+`.cars SET car_name = $2, carmodelnum = $3,
car_color = $4, car_mileage = $5, car_isflooding = $6, car_issmoked = $7, car_image_url = $8
WHERE car_id = $1
RETURNING car_id, car_name, carmodelnum, car_color, car_mileage, car_isflooding, car_issmoked, car_image_url;`,
			carID, c.CarName, c.CarModelNum, c.CarColor, c.CarMileage,
			boolAsInt(c.CarIsFlooding), boolAsInt(c.CarIsSmoked), c.CarImageURL), &c)
		if err == sql.ErrNoRows {
			notFound(w, "car")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, c)
	}

	// delete cascades over all child tables and the ownership join
	// table in one transaction, children first
	carDelete := func(w http.ResponseWriter, r *http.Request) {
		carID, ok := carIDParam(w, r)
		if !ok {
			return
		}
		tx, err := b.db.BeginTx(r.Context(), nil)
		if err != nil {
			internalError(w, r, err)
			return
		}
		for _, table := range []string{
			"fuel_efficiencies", "maintenances", "tunings", "accidents",
			"periodic_inspections", "car_inspections", "user_car",
		} {
			if _, err = tx.Exec(`DELETE FROM `+schema+`.`+table+` WHERE car_id = $1;`, carID); err != nil {
				tx.Rollback()
				internalError(w, r, err)
				return
			}
		}
		res, err := tx.Exec(`DELETE FROM `+schema+`.cars WHERE car_id = $1;`, carID)
		if err != nil {
			tx.Rollback()
			internalError(w, r, err)
			return
		}
		if count, _ := res.RowsAffected(); count == 0 {
			tx.Rollback()
			notFound(w, "car")
			return
		}
		if err = tx.Commit(); err != nil {
			internalError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	carImageSet := func(w http.ResponseWriter, r *http.Request) {
		carID, ok := carIDParam(w, r)
		if !ok {
			return
		}
		var c Car
		err := scanCar(b.db.QueryRow(readQuery+`WHERE car_id = $1;`, carID), &c)
		if err == sql.ErrNoRows {
			notFound(w, "car")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		url, ok := b.storeImage(w, r)
		if !ok {
			return
		}
		// an earlier image is replaced, remove the old object unless
		// the upload reused its key
		if c.CarImageURL != nil && *c.CarImageURL != url {
			if key, ok := b.storageKeyFromURL(*c.CarImageURL); ok {
				if err := b.storage.Delete(key); err != nil {
					logger.FromContext(r.Context()).WithError(err).Warnln("cannot delete previous car image")
				}
			}
		}
		err = scanCar(b.db.QueryRow(`UPDATE `+schema+`.cars SET car_image_url = $2 WHERE car_id = $1
RETURNING car_id, car_name, carmodelnum, car_color, car_mileage, car_isflooding, car_issmoked, car_image_url;`,
			carID, url), &c)
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, c)
	}

	carImageDelete := func(w http.ResponseWriter, r *http.Request) {
		carID, ok := carIDParam(w, r)
		if !ok {
			return
		}
		var c Car
		err := scanCar(b.db.QueryRow(readQuery+`WHERE car_id = $1;`, carID), &c)
		if err == sql.ErrNoRows {
			notFound(w, "car")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		if c.CarImageURL != nil && b.storage != nil {
			if key, ok := b.storageKeyFromURL(*c.CarImageURL); ok {
				if err := b.storage.Delete(key); err != nil {
					logger.FromContext(r.Context()).WithError(err).Warnln("cannot delete car image")
				}
			}
		}
		_, err = b.db.Exec(`UPDATE `+schema+`.cars SET car_image_url = NULL WHERE car_id = $1;`, carID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	b.api.Handle("/cars", handlers.CompressHandler(http.HandlerFunc(carList))).
		Methods(http.MethodOptions, http.MethodGet)
	b.api.Handle("/cars", handlers.CompressHandler(http.HandlerFunc(carCreate))).
		Methods(http.MethodOptions, http.MethodPost)
	b.api.Handle("/cars/{car_id}", handlers.CompressHandler(http.HandlerFunc(carRead))).
		Methods(http.MethodOptions, http.MethodGet)
	b.api.Handle("/cars/{car_id}", handlers.CompressHandler(http.HandlerFunc(carUpdate))).
		Methods(http.MethodOptions, http.MethodPut)
	b.api.Handle("/cars/{car_id}", handlers.CompressHandler(http.HandlerFunc(carDelete))).
		Methods(http.MethodOptions, http.MethodDelete)
	b.api.Handle("/cars/{car_id}/image", handlers.CompressHandler(http.HandlerFunc(carImageSet))).
		Methods(http.MethodOptions, http.MethodPut)
	b.api.Handle("/cars/{car_id}/image", handlers.CompressHandler(http.HandlerFunc(carImageDelete))).
		Methods(http.MethodOptions, http.MethodDelete)
}

// carChildList returns a list handler for a child table of cars. The
// handler distinguishes an unknown car from a car without entries.
func (b *Backend) carChildList(query string, scan func(rowScanner) (interface{}, error)) http.HandlerFunc {
	schema := b.db.Schema
	return func(w http.ResponseWriter, r *http.Request) {
		carID, ok := carIDParam(w, r)
		if !ok {
			return
		}
		var exists bool
		err := b.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM `+schema+`.cars WHERE car_id = $1);`,
			carID).Scan(&exists)
		if err != nil {
			internalError(w, r, err)
			return
		}
		if !exists {
			notFound(w, "car")
			return
		}
		rows, err := b.db.Query(query, carID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		defer rows.Close()
		list := []interface{}{}
		for rows.Next() {
			item, err := scan(rows)
			if err != nil {
				internalError(w, r, err)
				return
			}
			list = append(list, item)
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// storageKeyFromURL recovers the object key from a public image url,
// the inverse of kss.Driver.PublicURL.
func (b *Backend) storageKeyFromURL(url string) (string, bool) {
	if b.storage == nil {
		return "", false
	}
	base := b.storage.PublicURL("")
	if base == "" || !strings.HasPrefix(url, base) {
		return "", false
	}
	return strings.TrimPrefix(url, base), true
}
