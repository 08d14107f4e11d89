// Command token mints a service JWT for the internal HTTP API, for
// wiring up the bridge or calling operator endpoints by hand.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bettask/backend/internal/auth"
	"github.com/bettask/backend/internal/config"
)

func main() {
	service := flag.String("service", "operator", "service name to embed in the token")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	token, err := auth.GenerateServiceJWT(cfg.JWTSecret, *service, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
