// Package gateway builds the single configured handle to the hosted backend
// and wires the stores on top of it.
package gateway

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/framezsocial/framez/pkg/auth"
	"github.com/framezsocial/framez/pkg/conf"
	"github.com/framezsocial/framez/pkg/storage"
)

const defaultBucket = "images"

// Gateway bundles the three remote surfaces of the hosted backend.
type Gateway struct {
	DB      *sql.DB
	Auth    *auth.Client
	Storage *storage.Client
	Bucket  string
}

// New validates the configuration and opens the backend handles. Called once
// at process start, a missing URL or key is fatal here rather than at first
// use. When the file config carries no API section the environment is tried
// before giving up.
func New(config conf.ClientConf) (*Gateway, error) {
	if config.API.Validate() != nil {
		config.API = conf.APIFromEnv()
	}

	if err := config.API.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Postgres.Host, config.Postgres.Port, config.Postgres.User,
		config.Postgres.Password, config.Postgres.Database, config.Postgres.SSL,
	))
	if err != nil {
		return nil, err
	}

	bucket := config.Storage.Bucket
	if bucket == "" {
		bucket = defaultBucket
	}

	return &Gateway{
		DB:      db,
		Auth:    auth.NewClient(config.API.URL, config.API.Key),
		Storage: storage.NewClient(config.API.URL, config.API.Key),
		Bucket:  bucket,
	}, nil
}

func (g *Gateway) Close() error {
	return g.DB.Close()
}
