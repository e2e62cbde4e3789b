// The finquest service runs the application backend: authentication,
// entity access for the backend functions and the recurring jobs.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"

	"github.com/marcossouzacontrole-cpu/finquest/core/backend"
	"github.com/marcossouzacontrole-cpu/finquest/core/csql"
	"github.com/marcossouzacontrole-cpu/finquest/core/jobs"
	"github.com/marcossouzacontrole-cpu/finquest/core/logger"
	"github.com/marcossouzacontrole-cpu/finquest/functions"
)

// Service holds the configuration of the finquest service.
type Service struct {
	Postgres           string `env:"POSTGRES,required"`
	Port               string `env:"PORT,default=3000"`
	JWTSecret          string `env:"JWT_SECRET,default=finquest-top-secret-key-2026"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID,default="`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET,default="`
	AppBaseURL         string `env:"APP_BASE_URL,default=https://finquestgame.vercel.app"`
	ServerURL          string `env:"SERVER_URL,default=http://localhost:3000"`
}

func main() {
	logger.InitLogger(logrus.InfoLevel)
	rlog := logger.Default()

	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		rlog.Fatalln("configuration:", err)
	}

	db := csql.New(service.Postgres, "finquest")
	defer db.Close()

	router := mux.NewRouter()
	backend.New(&backend.Builder{
		DB:                 db,
		Router:             router,
		TokenSecret:        service.JWTSecret,
		TokenLifetime:      24 * time.Hour,
		GoogleClientID:     service.GoogleClientID,
		GoogleClientSecret: service.GoogleClientSecret,
		AppBaseURL:         service.AppBaseURL,
		ServerURL:          service.ServerURL,
		UpdateSchema:       true,
	})

	scheduler := jobs.NewScheduler(db)
	scheduler.Schedule("syncTransactions", 24*time.Hour, functions.SyncTransactions)
	go scheduler.Run(context.Background())

	rlog.Infoln("listening on port", service.Port)
	rlog.Fatalln(http.ListenAndServe(":"+service.Port,
		handlers.CombinedLoggingHandler(os.Stdout, router)))
}
