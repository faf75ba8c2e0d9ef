/*Package csql encapsulates access to the AutoTrack postgres database.

The package wraps a standard sql.DB together with the database schema
the service operates on.
*/
package csql

import (
	"database/sql"
	"log"
	"strings"

	_ "github.com/lib/pq" // load database driver for postgres
)

// DB encapsulates a standard sql.DB with a schema
type DB struct {
	*sql.DB
	Schema string
}

// ErrNoRows is returned by Scan when QueryRow doesn't return a
// row. In such a case, QueryRow returns a placeholder *Row value that
// defers this error until a Scan.
var ErrNoRows = sql.ErrNoRows

// OpenWithSchema opens the autotrack postgres database with a schema.
// The schema gets created if it does not exist yet. The password is
// passed separately so the data source name can be logged.
func OpenWithSchema(dataSourceName, password, schema string) *DB {
	log.Println("connecting to postgres database: ", dataSourceName)
	dataSourceName = withPassword(dataSourceName, password)
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		panic(err)
	}
	err = db.Ping()
	if err != nil {
		panic(err)
	}
	if len(schema) == 0 {
		schema = "public"
	} else {
		log.Println("selected database schema:", schema)
		_, err = db.Exec(`CREATE schema IF NOT EXISTS ` + schema + `;`)
		if err != nil {
			panic(err)
		}
	}
	return &DB{DB: db, Schema: schema}
}

// withPassword appends the password to the data source name. The value
// is single-quoted so passwords containing spaces or quotes survive the
// keyword/value syntax of the postgres driver.
func withPassword(dataSourceName, password string) string {
	if len(password) == 0 {
		return dataSourceName
	}
	password = strings.ReplaceAll(password, `\`, `\\`)
	password = strings.ReplaceAll(password, `'`, `\'`)
	return dataSourceName + " password='" + password + "'"
}

// ClearSchema clears all the data contained in the database's schema
// Technically this is done by dropping the schema and then recreating it
func (db *DB) ClearSchema() {
	if db.Schema == "public" {
		panic("refuse to drop public schema")
	}
	_, err := db.Exec(`DROP SCHEMA ` + db.Schema + ` CASCADE;
	CREATE schema IF NOT EXISTS ` + db.Schema + `;`)
	if err != nil {
		log.Println("clear schema error:", db.Schema, err.Error())
	}
}
