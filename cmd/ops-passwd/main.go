package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/freshkit/freshkit-backend/pkg/security"
)

// ops-passwd prints an argon2id hash for FRESHKIT_OPS_PASSWORD_HASH. The
// password is read from -password or, when omitted, the first line of stdin.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "ops-passwd"})

	password := flag.String("password", "", "plain ops dashboard password (prefer stdin)")
	flag.Parse()

	plain := *password
	if plain == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			logg.Error(ctx, "failed to read password from stdin", err)
			os.Exit(1)
		}
		plain = strings.TrimRight(line, "\r\n")
	}

	hash, err := security.HashPassword(plain, security.DefaultParams)
	if err != nil {
		logg.Error(ctx, "failed to hash password", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
