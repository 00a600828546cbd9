// Command hashpw prints the bcrypt hash for APP_ADMIN_PASSWORD_HASH.
//
//	go run ./cmd/hashpw            # prompts without echo
//	echo -n secret | go run ./cmd/hashpw -stdin
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/sakif/resource-showcase/internal/auth"
)

func main() {
	cost := flag.Int("cost", auth.DefaultCost, "bcrypt cost")
	fromStdin := flag.Bool("stdin", false, "read the password from standard input")
	flag.Parse()

	password, err := readPassword(*fromStdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashpw:", err)
		os.Exit(1)
	}
	if password == "" {
		fmt.Fprintln(os.Stderr, "hashpw: empty password")
		os.Exit(1)
	}

	hash, err := auth.NewPasswordService(*cost).Hash(password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashpw:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

func readPassword(fromStdin bool) (string, error) {
	fd := int(os.Stdin.Fd())
	if fromStdin || !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}
