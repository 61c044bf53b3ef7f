// Command devtoken writes an RSA public key for PLANNER_JWT_KEYS_FILE and a
// signed token carrying the plan write scope, for local testing of POST /plan.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type options struct {
	Subject string
	Scope   string
	TTL     time.Duration
}

type material struct {
	KeyID     string
	PublicPEM []byte
	Token     string
}

func generate(opts options) (material, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return material{}, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return material{}, err
	}
	sum := sha256.Sum256(pubDER)
	kid := base64.RawURLEncoding.EncodeToString(sum[:8])

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub":   opts.Subject,
		"scope": opts.Scope,
		"iat":   now.Unix(),
		"exp":   now.Add(opts.TTL).Unix(),
	})
	token.Header["kid"] = kid
	signed, err := token.SignedString(priv)
	if err != nil {
		return material{}, err
	}
	return material{
		KeyID:     kid,
		PublicPEM: pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}),
		Token:     signed,
	}, nil
}

func must(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

func main() {
	keyOut := flag.String("key-out", "devops/certs/planner_jwt.pem", "public key output path")
	tokenOut := flag.String("token-out", "devops/certs/planner_jwt.txt", "token output path")
	subject := flag.String("sub", "local-dev", "token subject")
	scope := flag.String("scope", "plan:write", "space separated scopes")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	m, err := generate(options{Subject: *subject, Scope: *scope, TTL: *ttl})
	must(err)

	must(os.MkdirAll(filepath.Dir(*keyOut), 0o755))
	must(os.WriteFile(*keyOut, m.PublicPEM, 0o644))
	fmt.Printf("wrote public key -> %s (kid=%s)\n", *keyOut, m.KeyID)

	must(os.MkdirAll(filepath.Dir(*tokenOut), 0o755))
	must(os.WriteFile(*tokenOut, []byte(m.Token+"\n"), 0o600))
	fmt.Printf("wrote token -> %s\n", *tokenOut)
}
