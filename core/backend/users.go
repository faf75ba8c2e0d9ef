package backend

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/lib/pq"

	"github.com/autotrack-work/backend/core/logger"
)

// User is an account holder, identified by its firebase user id.
type User struct {
	FirebaseUserID string `json:"firebase_user_id"`
	UserEmail      string `json:"user_email"`
	UserName       string `json:"user_name"`
}

func (b *Backend) handleUserRoutes() {
	schema := b.db.Schema
	logger.Default().Debugln("backend: handle user routes")

	readQuery := `SELECT firebase_user_id, user_email, user_name FROM ` + schema + `.users `

	userList := func(w http.ResponseWriter, r *http.Request) {
		rows, err := b.db.Query(readQuery + `ORDER BY firebase_user_id;`)
		if err != nil {
			internalError(w, r, err)
			return
		}
		defer rows.Close()
		users := []User{}
		for rows.Next() {
			var u User
			if err := rows.Scan(&u.FirebaseUserID, &u.UserEmail, &u.UserName); err != nil {
				internalError(w, r, err)
				return
			}
			users = append(users, u)
		}
		respondJSON(w, http.StatusOK, users)
	}

	userRead := func(w http.ResponseWriter, r *http.Request) {
		params := mux.Vars(r)
		var u User
		err := b.db.QueryRow(readQuery+`WHERE firebase_user_id = $1;`, params["firebase_user_id"]).
			Scan(&u.FirebaseUserID, &u.UserEmail, &u.UserName)
		if err == sql.ErrNoRows {
			notFound(w, "user")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, u)
	}

	userCreate := func(w http.ResponseWriter, r *http.Request) {
		var u User
		if !b.decodeBody(w, r, "user", &u) {
			return
		}
		err := b.db.QueryRow(`INSERT INTO `+schema+`.users (firebase_user_id, user_email, user_name)
VALUES ($1, $2, $3) RETURNING firebase_user_id, user_email, user_name;`,
			u.FirebaseUserID, u.UserEmail, u.UserName).
			Scan(&u.FirebaseUserID, &u.UserEmail, &u.UserName)
		if pqerr, ok := err.(*pq.Error); ok && pqerr.Code.Name() == "unique_violation" {
			errorResponse(w, http.StatusConflict, "user already exists")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, u)
	}

	userUpdate := func(w http.ResponseWriter, r *http.Request) {
		params := mux.Vars(r)
		var u User
		if !b.decodeBody(w, r, "user_update", &u) {
			return
		}
		err := b.db.QueryRow(`UPDATE `+schema+`.users SET user_email = $2, user_name = $3
WHERE firebase_user_id = $1 RETURNING firebase_user_id, user_email, user_name;`,
			params["firebase_user_id"], u.UserEmail, u.UserName).
			Scan(&u.FirebaseUserID, &u.UserEmail, &u.UserName)
		if err == sql.ErrNoRows {
			notFound(w, "user")
			return
		}
		if err != nil {
			internalError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, u)
	}

	userDelete := func(w http.ResponseWriter, r *http.Request) {
		params := mux.Vars(r)
		res, err := b.db.Exec(`DELETE FROM `+schema+`.users WHERE firebase_user_id = $1;`,
			params["firebase_user_id"])
		if err != nil {
			internalError(w, r, err)
			return
		}
		if count, _ := res.RowsAffected(); count == 0 {
			notFound(w, "user")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	// cars of a user, resolved through the ownership join table
	userCars := func(w http.ResponseWriter, r *http.Request) {
		params := mux.Vars(r)
		var exists bool
		err := b.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM `+schema+`.users WHERE firebase_user_id = $1);`,
			params["firebase_user_id"]).Scan(&exists)
		if err != nil {
			internalError(w, r, err)
			return
		}
		if !exists {
			notFound(w, "user")
			return
		}
		rows, err := b.db.Query(`SELECT c.car_id, c.car_name, c.carmodelnum, c.car_color, c.car_mileage,
c.car_isflooding, c.car_issmoked, c.car_image_url
FROM `+schema+`.cars c JOIN `+schema+`.user_car uc ON uc.car_id = c.car_id
WHERE uc.firebase_user_id = $1 ORDER BY c.car_id;`, params["firebase_user_id"])
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

	b.api.Handle("/users", handlers.CompressHandler(http.HandlerFunc(userList))).
		Methods(http.MethodOptions, http.MethodGet)
	b.api.Handle("/users", handlers.CompressHandler(http.HandlerFunc(userCreate))).
		Methods(http.MethodOptions, http.MethodPost)
	b.api.Handle("/users/{firebase_user_id}", handlers.CompressHandler(http.HandlerFunc(userRead))).
		Methods(http.MethodOptions, http.MethodGet)
	b.api.Handle("/users/{firebase_user_id}", handlers.CompressHandler(http.HandlerFunc(userUpdate))).
		Methods(http.MethodOptions, http.MethodPut)
	b.api.Handle("/users/{firebase_user_id}", handlers.CompressHandler(http.HandlerFunc(userDelete))).
		Methods(http.MethodOptions, http.MethodDelete)
	b.api.Handle("/users/{firebase_user_id}/cars", handlers.CompressHandler(http.HandlerFunc(userCars))).
		Methods(http.MethodOptions, http.MethodGet)
}
