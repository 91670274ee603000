package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// genkey prints a random 256-bit session signing secret for JWT_SECRET.
func main() {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(err)
	}

	fmt.Printf("JWT_SECRET=%s\n", hex.EncodeToString(secret))
}
