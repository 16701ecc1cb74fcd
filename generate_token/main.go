package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"drive-autoposter/internal/auth"
)

// oauthConfig prefers a downloaded client_secrets.json and falls back to
// G_CLIENT_ID / G_CLIENT_SECRET from the environment.
func oauthConfig(credentialsPath string) (*oauth2.Config, error) {
	if b, err := os.ReadFile(credentialsPath); err == nil {
		return google.ConfigFromJSON(b, auth.Scopes...)
	}
	id, secret := os.Getenv("G_CLIENT_ID"), os.Getenv("G_CLIENT_SECRET")
	if id == "" || secret == "" {
		return nil, fmt.Errorf("no %s and G_CLIENT_ID/G_CLIENT_SECRET not set", credentialsPath)
	}
	return &oauth2.Config{
		ClientID:     id,
		ClientSecret: secret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "http://localhost",
		Scopes:       auth.Scopes,
	}, nil
}

func main() {
	credentialsPath := flag.String("credentials", "client_secrets.json", "Path to client_secrets.json (Desktop app)")
	flag.Parse()

	_ = godotenv.Load(".env")

	fmt.Println("🔐 Drive + YouTube refresh token")
	fmt.Println("========================================")

	config, err := oauthConfig(*credentialsPath)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		fmt.Println("   Create OAuth 2.0 credentials (Desktop app) in Google Cloud Console")
		os.Exit(1)
	}

	authURL := config.AuthCodeURL("state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Println()
	fmt.Println("📱 Open this URL in your browser:")
	fmt.Printf("   %s\n", authURL)
	fmt.Println()
	fmt.Println("After authorization, paste the code parameter from the redirect URL:")
	fmt.Print("👉 Code: ")

	var code string
	if _, err := fmt.Scanln(&code); err != nil {
		fmt.Printf("❌ Failed to read auth code: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	token, err := config.Exchange(ctx, code)
	if err != nil {
		fmt.Printf("❌ Failed to exchange code: %v\n", err)
		os.Exit(1)
	}
	if token.RefreshToken == "" {
		fmt.Println("❌ No refresh token returned; revoke the app's access and try again")
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("✅ Add these to your .env:")
	fmt.Printf("G_CLIENT_ID=%s\n", config.ClientID)
	fmt.Printf("G_CLIENT_SECRET=%s\n", config.ClientSecret)
	fmt.Printf("G_REFRESH_TOKEN=%s\n", token.RefreshToken)
	fmt.Println()

	client := config.Client(ctx, token)

	if driveSvc, err := drive.NewService(ctx, option.WithHTTPClient(client)); err == nil {
		if about, err := driveSvc.About.Get().Fields("user(emailAddress)").Do(); err == nil {
			fmt.Printf("📁 Drive account: %s\n", about.User.EmailAddress)
		} else {
			fmt.Printf("⚠️  Could not read Drive account: %v\n", err)
		}
	}

	ytSvc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		fmt.Printf("⚠️  Could not verify channel (will still work): %v\n", err)
		return
	}
	channels, err := ytSvc.Channels.List([]string{"snippet"}).Mine(true).Do()
	if err != nil {
		fmt.Printf("⚠️  Could not fetch channel info: %v\n", err)
		return
	}
	if len(channels.Items) > 0 {
		fmt.Printf("📺 Channel: %s (%s)\n", channels.Items[0].Snippet.Title, channels.Items[0].Id)
	}
}
