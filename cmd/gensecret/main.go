package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

const SecretKeyBytesLen = 32

// Prints a fresh pair of signing secrets, ready to paste into .env
// Access and refresh tokens must be signed with distinct keys
func main() {
	keys := [...]string{"JWT_SECRET", "JWT_REFRESH_SECRET"}

	for _, key := range keys {
		b := make([]byte, SecretKeyBytesLen)

		_, err := rand.Read(b)
		if err != nil {
			fmt.Printf("error while generating secret key: %v", err)
			os.Exit(1)
		}

		fmt.Printf("%s=%s\n", key, hex.EncodeToString(b))
	}
}
