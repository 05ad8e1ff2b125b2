// Command create-user registers an account from the command line and prints
// a bearer token for it.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"ms-travel-sales/internal/auth"
	"ms-travel-sales/internal/config"
	"ms-travel-sales/internal/database"
	"ms-travel-sales/internal/database/migrations"
	"ms-travel-sales/internal/logger"
	"ms-travel-sales/internal/models"
	"ms-travel-sales/internal/users"
)

func main() {
	var req users.CreateRequest
	var role string
	var admin, noToken bool

	flag.StringVar(&req.Email, "email", "", "email address (required)")
	flag.StringVar(&req.Name, "name", "", "full name (required)")
	flag.StringVar(&req.NationalID, "national-id", "", "national id number (required)")
	flag.StringVar(&req.Phone, "phone", "", "phone number (required)")
	flag.StringVar(&req.Password, "password", "", "password (required)")
	flag.StringVar(&role, "role", string(models.RoleClient), "client, applicant, employee or admin")
	flag.BoolVar(&admin, "admin", false, "shortcut for --role admin")
	flag.BoolVar(&noToken, "no-token", false, "do not print a bearer token")
	flag.Parse()

	req.Role = models.Role(role)
	if admin {
		req.Role = models.RoleAdmin
	}

	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewConsoleLogger(os.Stderr)
	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create-user: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.Apply(ctx, db, cfg.Database, log); err != nil {
			fmt.Fprintf(os.Stderr, "create-user: %v\n", err)
			os.Exit(1)
		}
	}

	user, err := users.NewService(db, log).Create(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create-user: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}
	fmt.Printf("created %s user %s (%s)\n", user.Role, user.Email, user.ID)

	if noToken {
		return
	}
	token, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Issue(user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create-user: sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
