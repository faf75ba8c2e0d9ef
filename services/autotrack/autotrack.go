package main

import (
	"net/http"

	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"github.com/autotrack-work/backend/core/access"
	"github.com/autotrack-work/backend/core/backend"
	"github.com/autotrack-work/backend/core/csql"
	"github.com/autotrack-work/backend/core/kss"
	"github.com/autotrack-work/backend/core/logger"
)

// Service holds the configuration for this service
//
// use POSTGRES="host=localhost port=5432 user=postgres dbname=postgres sslmode=disable"
type Service struct {
	Postgres          string `env:"POSTGRES,required" description:"the connection string for the Postgres DB without password"`
	PostgresPassword  string `env:"POSTGRES_PASSWORD,default=docker" description:"password to the Postgres DB"`
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID,default=" description:"the Firebase project whose users may call the api"`
	S3AccessID        string `env:"S3_ACCESS_ID,default=" description:"access id of the object storage"`
	S3AccessKey       string `env:"S3_ACCESS_KEY,default=" description:"access key of the object storage"`
	S3Region          string `env:"S3_REGION,default=auto" description:"region of the object storage"`
	S3Bucket          string `env:"S3_BUCKET,default=" description:"bucket for uploaded images"`
	S3Endpoint        string `env:"S3_ENDPOINT,default=" description:"endpoint of an S3-compatible object storage, empty for AWS"`
	PublicImageURL    string `env:"PUBLIC_IMAGE_URL,default=" description:"public base url under which uploaded images resolve"`
	LogLevel          string `env:"LOG_LEVEL,default=info" description:"one of panic, fatal, error, warn, info, debug, trace"`
	Port              string `env:"PORT,default=3000" description:"the port the service listens on"`
}

func main() {
	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		panic(err)
	}
	logLevel, err := logrus.ParseLevel(service.LogLevel)
	if err != nil {
		panic(err)
	}
	logger.InitLogger(logLevel)
	log := logger.Default()

	db := csql.OpenWithSchema(service.Postgres, service.PostgresPassword, "autotrack")
	defer db.Close()

	var storage kss.Driver
	if service.S3Bucket != "" {
		var err error
		storage, err = kss.NewS3(kss.S3Configuration{
			AccessID:      service.S3AccessID,
			AccessKey:     service.S3AccessKey,
			AWSRegion:     service.S3Region,
			AWSBucketName: service.S3Bucket,
			Endpoint:      service.S3Endpoint,
			PublicURL:     service.PublicImageURL,
		})
		if err != nil {
			log.WithError(err).Fatalln("cannot create object storage driver")
		}
	} else {
		log.Warnln("no S3 bucket configured, image uploads are disabled")
	}

	router := mux.NewRouter()
	auth := access.NewFirebaseMiddleware(&access.FirebaseMiddlewareBuilder{
		ProjectID: service.FirebaseProjectID,
		DB:        db,
	})
	backend.MustNew(&backend.Builder{
		DB:           db,
		Router:       router,
		Storage:      storage,
		Middleware:   auth,
		UpdateSchema: true,
	})

	log.Infoln("listen on port :" + service.Port)
	if err := http.ListenAndServe(":"+service.Port, router); err != nil {
		log.WithError(err).Fatalln("server stopped")
	}
}
