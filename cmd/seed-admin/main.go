// Command seed-admin creates the first admin user from the command line.
//
//	seed-admin -name "Owner" -email owner@example.com -password secret123
package main

import (
	"context"
	"flag"

	"designhouse-backend/internal/auth"
	"designhouse-backend/internal/config"
	"designhouse-backend/internal/database"
	"designhouse-backend/internal/logger"
	"designhouse-backend/internal/store/gormstore"
)

func main() {
	name := flag.String("name", "", "admin name")
	email := flag.String("email", "", "admin email")
	password := flag.String("password", "", "admin password")
	flag.Parse()

	log := logger.Get()
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	user, err := auth.BootstrapAdmin(context.Background(), gormstore.New(db, cfg.TxTimeout), *name, *email, *password)
	if err != nil {
		log.Fatalf("create admin: %v", err)
	}
	log.WithField("user_id", user.ID).Infof("admin %s created", user.Email)
}
