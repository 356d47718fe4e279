package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"labelcheck/models"
	"labelcheck/pkg/store"
)

func main() {
	role := flag.String("role", models.RoleInspector, "role name (inspector or administrator)")
	flag.Parse()
	if flag.NArg() < 2 {
		fmt.Println("usage: go run ./cmd/create_user [-role administrator] <username> <password>")
		os.Exit(2)
	}
	username := flag.Arg(0)
	password := flag.Arg(1)
	if *role != models.RoleInspector && *role != models.RoleAdministrator {
		log.Fatalf("unknown role %q", *role)
	}

	st, err := store.Open(os.Getenv("DB_DSN"))
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	user, err := st.CreateUser(username, password, *role)
	if errors.Is(err, store.ErrUserExists) {
		fmt.Printf("user %s already exists\n", username)
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("created user %s id=%d role=%s\n", username, user.ID, *role)
}
