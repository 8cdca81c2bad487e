// cmd/token/main.go
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/jason-s-yu/bluff/internal/auth"
	"github.com/jason-s-yu/bluff/internal/config"
	"github.com/jason-s-yu/bluff/internal/models"
	"github.com/sirupsen/logrus"
)

// Prints a websocket token signed with JWT_SECRET, for local clients and
// manual testing against a server running with auth enabled.
func main() {
	username := flag.String("username", "", "player username (required)")
	avatar := flag.String("avatar", "", "player avatar reference")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration.")
	}
	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET is not set.")
	}
	if *username == "" {
		logrus.Fatal("-username is required.")
	}

	token, err := auth.NewVerifier(cfg.JWTSecret).Issue(models.Identity{Username: *username, Avatar: *avatar}, *ttl)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to issue token.")
	}
	fmt.Println(token)
}
