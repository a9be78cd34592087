package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GehirnInc/crypt/md5_crypt"
	"github.com/GehirnInc/crypt/sha256_crypt"
	"github.com/GehirnInc/crypt/sha512_crypt"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserLocked         = errors.New("user is locked")
	ErrUnsupportedHash    = errors.New("unsupported password hash")
)

// Verifier checks a username/password pair. A nil error means the
// credentials were accepted.
type Verifier interface {
	Verify(username, password string) error
}

// HostVerifier authenticates against the host's shadow database.
type HostVerifier struct {
	// SuFallback delegates hash formats we cannot verify (yescrypt, scrypt)
	// to su(1).
	SuFallback bool

	su func(username, password string) (bool, error)
}

func NewHostVerifier(suFallback bool) *HostVerifier {
	return &HostVerifier{SuFallback: suFallback, su: verifyWithSu}
}

var _ Verifier = (*HostVerifier)(nil)

func (v *HostVerifier) Verify(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return ErrInvalidCredentials
	}
	path, err := shadowPath()
	if err != nil {
		return err
	}
	entries, err := loadShadow(path)
	if err != nil {
		return fmt.Errorf("%w: read shadow: %v", ErrAuthBackend, err)
	}
	se := findShadow(entries, username)
	if se == nil {
		return ErrInvalidCredentials
	}
	if se.Hash == "" || strings.HasPrefix(se.Hash, "!") || strings.HasPrefix(se.Hash, "*") {
		return ErrUserLocked
	}

	ok, err := verifyCrypt(se.Hash, password)
	if errors.Is(err, ErrUnsupportedHash) {
		if !v.SuFallback || v.su == nil {
			return err
		}
		ok, err = v.su(username, password)
	}
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

func verifyCrypt(hash, password string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, "$6$"):
		return sha512_crypt.New().Verify(hash, []byte(password)) == nil, nil
	case strings.HasPrefix(hash, "$5$"):
		return sha256_crypt.New().Verify(hash, []byte(password)) == nil, nil
	case strings.HasPrefix(hash, "$1$"):
		return md5_crypt.New().Verify(hash, []byte(password)) == nil, nil
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
	case strings.HasPrefix(hash, "$y$"), strings.HasPrefix(hash, "$7$"), strings.HasPrefix(hash, "$gy$"):
		// Ubuntu and Debian default to yescrypt.
		return false, ErrUnsupportedHash
	}
	return false, nil
}

// IsAuthFailure reports whether err means the user supplied bad or unusable
// credentials, as opposed to the backend failing.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrUserLocked)
}

func HumanAuthError(err error) string {
	switch {
	case err == nil:
		return ""
	case IsAuthFailure(err):
		return "Invalid credentials."
	case errors.Is(err, ErrUnsupportedHash):
		return "This host uses a password hash format that cannot be verified."
	default:
		return fmt.Sprintf("Authentication failed: %v", err)
	}
}
