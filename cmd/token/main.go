// Command token は POST /sync 用の運用者トークンを発行します。
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	jwtmw "crypto_backend/internal/platform/jwt"
)

func main() {
	operator := flag.String("operator", "cron", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}

	token, err := jwtmw.NewGenerator(os.Getenv(jwtmw.EnvKeyJWTSecret), *ttl).GenerateToken(*operator, jwtmw.ScopeSync)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
