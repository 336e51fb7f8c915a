// account_setup creates the solo account in a self-hosted postgres store, or sets a new PIN for it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/2beens/whole2swole/internal/auth"
	"github.com/2beens/whole2swole/internal/config"
	"github.com/2beens/whole2swole/internal/db"
	"github.com/2beens/whole2swole/internal/store/postgres"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("load .env: %s", err)
	}

	storeURL := flag.String("store-url", os.Getenv(config.EnvStoreURL), "postgres:// URL of the store")
	email := flag.String("email", config.DefaultSoloEmail, "account identity the PIN signs in as")
	pin := flag.String("pin", "", "4 digit PIN")
	flag.Parse()

	if *storeURL == "" {
		log.Fatalf("store url not set, use -store-url or %s", config.EnvStoreURL)
	}
	if !auth.ValidPIN(*pin) {
		log.Fatalln(auth.MessageInvalidPIN)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		ConnString: *storeURL,
		Password:   os.Getenv(config.EnvStorePublicKey),
		MaxConns:   1,
	})
	if err != nil {
		log.Fatalf("new db pool: %s", err)
	}
	defer dbPool.Close()

	pgStore := postgres.New(dbPool)
	if err := pgStore.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %s", err)
	}

	id, err := pgStore.UpsertAccount(ctx, *email, *pin)
	if err != nil {
		log.Fatalf("upsert account: %s", err)
	}

	fmt.Printf("account %s ready: %s\n", *email, id)
}
