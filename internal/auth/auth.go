package auth

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const DebugTokenHeader = "X-Debug-Token"

var ErrUnauthenticated = errors.New("authentication required: bearer token with write scope")

type Config struct {
	KeysFile        string
	WriteScope      string
	AllowDebugToken bool
	DebugToken      string
	Production      bool
}

// Verifier guards write endpoints.
type Verifier struct {
	cfg  Config
	keys []interface{}
}

// NewVerifier loads the PEM public keys tokens are checked against. Without
// a key file the verifier is open, which is refused in production.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.WriteScope == "" {
		cfg.WriteScope = "plan:write"
	}
	v := &Verifier{cfg: cfg}
	if cfg.KeysFile != "" {
		data, err := os.ReadFile(cfg.KeysFile)
		if err != nil {
			return nil, fmt.Errorf("read jwt keys: %w", err)
		}
		keys, err := ParsePublicKeys(data)
		if err != nil {
			return nil, fmt.Errorf("load jwt keys from %s: %w", cfg.KeysFile, err)
		}
		v.keys = keys
		return v, nil
	}
	if cfg.Production && !cfg.AllowDebugToken {
		return nil, errors.New("PLANNER_JWT_KEYS_FILE required in production")
	}
	return v, nil
}

// ParsePublicKeys reads every public key or certificate in a PEM bundle.
func ParsePublicKeys(data []byte) ([]interface{}, error) {
	var keys []interface{}
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			cert, cerr := x509.ParseCertificate(block.Bytes)
			if cerr != nil {
				continue
			}
			key = cert.PublicKey
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil, errors.New("no valid keys found")
	}
	return keys, nil
}

// Open reports whether requests pass without credentials.
func (v *Verifier) Open() bool {
	return len(v.keys) == 0 && !v.cfg.AllowDebugToken && !v.cfg.Production
}

func (v *Verifier) VerifyRequest(r *http.Request) error {
	if v.cfg.AllowDebugToken && v.cfg.DebugToken != "" && r.Header.Get(DebugTokenHeader) == v.cfg.DebugToken {
		return nil
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") && len(v.keys) > 0 {
		return v.verifyToken(strings.TrimPrefix(header, "Bearer "))
	}
	if v.Open() {
		return nil
	}
	return ErrUnauthenticated
}

func (v *Verifier) verifyToken(tokenStr string) error {
	var (
		token *jwt.Token
		err   error
	)
	for _, key := range v.keys {
		token, err = jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256", "ES384", "EdDSA"}))
		if err == nil && token.Valid {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("token parse error: %w", err)
	}
	if !token.Valid {
		return errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("invalid claims")
	}
	if hasScope(claims, v.cfg.WriteScope) {
		return nil
	}
	return errors.New("missing required scope")
}

func hasScope(claims jwt.MapClaims, want string) bool {
	if scope, ok := claims["scope"].(string); ok {
		for _, s := range strings.Fields(scope) {
			if s == want {
				return true
			}
		}
	}
	if roles, ok := claims["roles"].([]interface{}); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}
