// hashtoken generates the bcrypt hash for the gallery refresh admin token.
// Set the printed value as ADMIN_TOKEN_HASH on the server.
package main

import (
	"bytes"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const minTokenLength = 8

func main() {
	fmt.Print("Admin token: ")
	token, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading token: %v\n", err)
		os.Exit(1)
	}

	fmt.Print("Confirm token: ")
	confirm, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading token: %v\n", err)
		os.Exit(1)
	}

	if !bytes.Equal(token, confirm) {
		fmt.Fprintln(os.Stderr, "Error: Tokens do not match")
		os.Exit(1)
	}

	if err := validateToken(token); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword(token, bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to hash token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Set this on the server:")
	fmt.Printf("  ADMIN_TOKEN_HASH='%s'\n", hash)
}

// validateToken enforces basic strength requirements. bcrypt silently
// truncates input past 72 bytes, so longer tokens are rejected rather than
// partially checked.
func validateToken(token []byte) error {
	if len(token) < minTokenLength {
		return fmt.Errorf("token must be at least %d characters", minTokenLength)
	}
	if len(token) > 72 {
		return fmt.Errorf("token must be at most 72 bytes")
	}
	return nil
}
