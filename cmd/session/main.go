package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"drive-autoposter/internal"
	"drive-autoposter/internal/instagram"
	"drive-autoposter/internal/logging"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	var (
		username = flag.String("username", os.Getenv("INSTA_USERNAME"), "Instagram username")
		password = flag.String("password", os.Getenv("INSTA_PASSWORD"), "Instagram password")
		apiURL   = flag.String("api", internal.DefaultInstagramAPI, "private API base URL")
		out      = flag.String("out", "", "write the session JSON to this file instead of stdout")
		reuse    = flag.Bool("reuse", false, "start from INSTA_SESSION and only log in again if it is rejected")
	)
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Println("Usage: session -username NAME -password PASS [-out session.json] [-reuse]")
		fmt.Println()
		fmt.Println("Prints a session blob for INSTA_SESSION.")
		os.Exit(1)
	}

	log := logging.NewWithWriters(os.Stderr, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	creds := instagram.Credentials{Username: *username, Password: *password}
	if *reuse {
		creds.Session = os.Getenv("INSTA_SESSION")
	}

	c, err := instagram.Login(ctx, *apiURL, creds, log)
	if err != nil {
		log.Errorf("login: %v", err)
		fmt.Fprintf(os.Stderr, "❌ Login failed: %v\n", err)
		os.Exit(1)
	}

	blob, err := c.Session().Marshal()
	if err != nil {
		log.Errorf("marshal session: %v", err)
		os.Exit(1)
	}

	if *out == "" {
		fmt.Println(blob)
		return
	}
	if err := os.WriteFile(*out, []byte(blob+"\n"), 0o600); err != nil {
		log.Errorf("write %s: %v", *out, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "✅ Session saved to %s\n", *out)
}
