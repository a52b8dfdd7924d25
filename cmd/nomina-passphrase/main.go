// Command nomina-passphrase prints the bcrypt hash of an admin passphrase
// for use as ADMIN_PASSPHRASE_HASH.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"nomina/internal/auth"
)

func main() {
	var passphrase string
	switch len(os.Args) {
	case 1:
		fmt.Fprint(os.Stderr, "Passphrase: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("read passphrase: %v", err)
		}
		passphrase = strings.TrimRight(line, "\r\n")
	case 2:
		passphrase = os.Args[1]
	default:
		log.Fatalf("usage: %s [passphrase]", os.Args[0])
	}

	if strings.TrimSpace(passphrase) == "" {
		log.Fatalf("passphrase cannot be empty")
	}

	hash, err := auth.HashPassphrase(passphrase)
	if err != nil {
		log.Fatalf("hash passphrase: %v", err)
	}
	fmt.Println(hash)
	fmt.Fprintln(os.Stderr, "Set ADMIN_PASSPHRASE_HASH to the value above.")
}
