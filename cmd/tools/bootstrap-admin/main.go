// Command bootstrap-admin seeds or promotes an administrator account in the
// datastore.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"mediareview/internal/models"
	"mediareview/internal/storage"
)

func main() {
	var (
		jsonPath    string
		postgresDSN string
		username    string
		fullName    string
		email       string
		password    string
	)

	flag.StringVar(&jsonPath, "json", "", "Path to the JSON datastore (store.json)")
	flag.StringVar(&postgresDSN, "postgres-dsn", "", "Postgres connection string")
	flag.StringVar(&username, "username", "admin", "Username for the admin account")
	flag.StringVar(&fullName, "name", "Administrator", "Full name for the admin account")
	flag.StringVar(&email, "email", "", "Email address for the admin account")
	flag.StringVar(&password, "password", "", "Password for the admin account")
	flag.Parse()

	if jsonPath == "" && postgresDSN == "" {
		fatalf("either --json or --postgres-dsn must be provided")
	}
	if jsonPath != "" && postgresDSN != "" {
		fatalf("only one datastore option may be provided")
	}
	if strings.TrimSpace(username) == "" {
		fatalf("--username cannot be empty")
	}
	if len(password) < 8 {
		fatalf("--password must be at least 8 characters")
	}

	repo, err := openRepository(jsonPath, postgresDSN)
	if err != nil {
		fatalf("open datastore: %v", err)
	}
	defer closeRepository(repo)

	user, created, err := bootstrapAdmin(repo, strings.TrimSpace(username), strings.TrimSpace(fullName), strings.TrimSpace(email), password)
	if err != nil {
		fatalf("bootstrap admin: %v", err)
	}

	state := "updated"
	if created {
		state = "created"
	}
	fmt.Printf("Admin user %s %s successfully.\n", user.UserName, state)
	fmt.Println("Remember to rotate this password after the first login.")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func openRepository(jsonPath, postgresDSN string) (storage.Repository, error) {
	if jsonPath != "" {
		return storage.NewJSONRepository(jsonPath)
	}
	return storage.NewPostgresRepository(postgresDSN)
}

func closeRepository(repo storage.Repository) {
	type closer interface {
		Close(context.Context) error
	}
	if c, ok := repo.(closer); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Close(ctx)
	}
}

// bootstrapAdmin creates the account when it does not exist yet; an existing
// account is promoted and has its password reset.
func bootstrapAdmin(repo storage.Repository, username, fullName, email, password string) (models.User, bool, error) {
	if existing, ok := repo.GetUserByName(username); ok {
		return promoteAdmin(repo, existing, password)
	}

	user, err := repo.CreateUser(storage.CreateUserParams{
		UserName: username,
		FullName: fullName,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return models.User{}, false, err
	}
	if !user.IsAdmin {
		user, err = repo.SetUserAdmin(user.UserName, true)
		if err != nil {
			return models.User{}, false, err
		}
	}
	return user, true, nil
}

func promoteAdmin(repo storage.Repository, existing models.User, password string) (models.User, bool, error) {
	updated := existing
	var err error
	if !existing.IsAdmin {
		updated, err = repo.SetUserAdmin(existing.UserName, true)
		if err != nil {
			return models.User{}, false, err
		}
	}
	updated, err = repo.SetUserPassword(updated.ID, password)
	if err != nil {
		return models.User{}, false, err
	}
	return updated, false, nil
}
