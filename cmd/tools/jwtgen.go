package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"asset-inventory-api/internal/auth"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	var (
		userID     = flag.Int64("user", 1, "User ID")
		username   = flag.String("username", "admin", "Username claim")
		role       = flag.String("role", "admin", "Role: admin, manager or user")
		expiryMins = flag.Int("expiry", 1440, "Token expiry in minutes (default: 24 hours)")
		secret     = flag.String("secret", envOr("JWT_SECRET", "change-me-in-production"), "JWT secret")
		issuer     = flag.String("issuer", envOr("JWT_ISS", "asset-inventory-api"), "JWT issuer")
		audience   = flag.String("audience", envOr("JWT_AUD", "asset-inventory-api"), "JWT audience")
	)
	flag.Parse()

	if !auth.ValidRole(*role) {
		log.Fatalf("Unknown role %q, want admin, manager or user", *role)
	}

	jwtManager := auth.NewJWTManager(*secret, *issuer, *audience, time.Duration(*expiryMins)*time.Minute)

	token, err := jwtManager.GenerateToken(*userID, *username, *role)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Printf("JWT Token generated successfully!\n\n")
	fmt.Printf("User ID: %d\n", *userID)
	fmt.Printf("Username: %s\n", *username)
	fmt.Printf("Role: %s\n", *role)
	fmt.Printf("Expiry: %d minutes\n", *expiryMins)
	fmt.Printf("Issuer: %s\n", *issuer)
	fmt.Printf("Audience: %s\n", *audience)
	fmt.Printf("\nToken:\n%s\n\n", token)

	fmt.Printf("Usage example:\n")
	fmt.Printf("curl -H \"Authorization: Bearer %s\" http://localhost:8080/assets\n", token)
}
