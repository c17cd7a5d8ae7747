// Command secretgen prints a random signing secret suitable for
// GOPHAUTH_SECRET_KEY.
package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"log"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

func main() {
	size := flag.Int("n", 32, "secret size in bytes")
	flag.Parse()

	if *size < 32 {
		log.Fatalf("secret size must be at least 32 bytes, got %d", *size)
	}

	b, err := common.RandBytes(*size)
	if err != nil {
		log.Fatalf("read random bytes: %v", err)
	}
	fmt.Println(base64.StdEncoding.EncodeToString(b))
}
