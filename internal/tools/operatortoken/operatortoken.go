// Package operatortoken issues bearer tokens for the operator MCP endpoint.
package operatortoken

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	entrypoint "github.com/louisbranch/autohidehost/internal/platform/cmd"
	"github.com/louisbranch/autohidehost/internal/services/autohide/operator"
)

const issuer = "autohide"

// Config holds configuration for token issuing.
type Config struct {
	Secret      string        `env:"OPERATOR_SECRET"`
	Subject     string        `env:"OPERATOR_SUBJECT" envDefault:"host"`
	Role        string        `env:"OPERATOR_ROLE" envDefault:"host"`
	TTL         time.Duration `env:"OPERATOR_TTL" envDefault:"24h"`
	SecretBytes int
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{SecretBytes: 32}
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Subject, "subject", cfg.Subject, "token subject, shown as the command caller")
	fs.StringVar(&cfg.Role, "role", cfg.Role, `token role; "host" may move the host`)
	fs.DurationVar(&cfg.TTL, "ttl", cfg.TTL, "token lifetime")
	fs.IntVar(&cfg.SecretBytes, "secret-bytes", cfg.SecretBytes, "random bytes for a generated secret")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run writes a signed token to out. Without a configured secret it generates
// one from reader and writes it first.
func Run(cfg Config, out io.Writer, reader io.Reader, now func() time.Time) error {
	if out == nil {
		return errors.New("output is required")
	}
	secret := cfg.Secret
	if secret == "" {
		if cfg.SecretBytes <= 0 {
			return errors.New("secret bytes must be greater than zero")
		}
		if reader == nil {
			reader = rand.Reader
		}
		buf := make([]byte, cfg.SecretBytes)
		if _, err := io.ReadFull(reader, buf); err != nil {
			return fmt.Errorf("generate random bytes: %w", err)
		}
		secret = hex.EncodeToString(buf)
		if _, err := fmt.Fprintf(out, "AUTOHIDE_OPERATOR_SECRET=%s\n", secret); err != nil {
			return err
		}
	}

	verifier, err := operator.NewVerifier(secret, issuer, now)
	if err != nil {
		return err
	}
	token, err := verifier.Issue(cfg.Subject, cfg.Role, cfg.TTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	_, err = fmt.Fprintf(out, "AUTOHIDE_OPERATOR_TOKEN=%s\n", token)
	return err
}
