package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GehirnInc/crypt/md5_crypt"
	"github.com/GehirnInc/crypt/sha512_crypt"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hnrobert/macallow/internal/hostfs"
)

func writeShadow(t *testing.T, lines ...string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "etc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "etc", "shadow"), []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	hostfs.SetRoot(dir)
	t.Cleanup(func() { hostfs.SetRoot("/") })
}

func sha512Hash(t *testing.T, password string) string {
	t.Helper()
	h, err := sha512_crypt.New().Generate([]byte(password), []byte("$6$macallowsalt"))
	require.NoError(t, err)
	return h
}

func TestHostVerifier(t *testing.T) {
	md5h, err := md5_crypt.New().Generate([]byte("md5pass"), []byte("$1$saltsalt"))
	require.NoError(t, err)
	bch, err := bcrypt.GenerateFromPassword([]byte("bcpass"), bcrypt.MinCost)
	require.NoError(t, err)

	writeShadow(t,
		"# comment",
		"root:*:19000:0:99999:7:::",
		"alice:"+sha512Hash(t, "s3cret")+":19000:0:99999:7:::",
		"bob:"+md5h+":19000:0:99999:7:::",
		"carol:"+string(bch)+":19000:0:99999:7:::",
		"dave:!"+sha512Hash(t, "locked")+":19000:0:99999:7:::",
		"erin::19000:0:99999:7:::",
	)
	v := NewHostVerifier(false)

	tests := []struct {
		name     string
		user     string
		password string
		want     error
	}{
		{"sha512 ok", "alice", "s3cret", nil},
		{"sha512 wrong", "alice", "nope", ErrInvalidCredentials},
		{"md5 ok", "bob", "md5pass", nil},
		{"bcrypt ok", "carol", "bcpass", nil},
		{"bcrypt wrong", "carol", "bad", ErrInvalidCredentials},
		{"locked with bang", "dave", "locked", ErrUserLocked},
		{"locked star", "root", "anything", ErrUserLocked},
		{"empty hash", "erin", "", ErrUserLocked},
		{"unknown user", "mallory", "x", ErrInvalidCredentials},
		{"empty user", "", "x", ErrInvalidCredentials},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Verify(tc.user, tc.password)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestHostVerifierYescryptFallback(t *testing.T) {
	writeShadow(t, "frank:$y$j9T$abcdefgh$0123456789abcdefghijklmnopqrstuv:19000:0:99999:7:::")

	t.Run("fallback disabled", func(t *testing.T) {
		v := NewHostVerifier(false)
		require.ErrorIs(t, v.Verify("frank", "pw"), ErrUnsupportedHash)
	})

	t.Run("fallback accepts", func(t *testing.T) {
		var gotUser, gotPass string
		v := &HostVerifier{SuFallback: true, su: func(u, p string) (bool, error) {
			gotUser, gotPass = u, p
			return true, nil
		}}
		require.NoError(t, v.Verify("frank", "pw"))
		require.Equal(t, "frank", gotUser)
		require.Equal(t, "pw", gotPass)
	})

	t.Run("fallback rejects", func(t *testing.T) {
		v := &HostVerifier{SuFallback: true, su: func(string, string) (bool, error) { return false, nil }}
		require.ErrorIs(t, v.Verify("frank", "pw"), ErrInvalidCredentials)
	})

	t.Run("fallback backend error", func(t *testing.T) {
		v := &HostVerifier{SuFallback: true, su: func(string, string) (bool, error) {
			return false, ErrAuthBackend
		}}
		err := v.Verify("frank", "pw")
		require.ErrorIs(t, err, ErrAuthBackend)
		require.False(t, IsAuthFailure(err))
	})
}

func TestHostVerifierMissingShadow(t *testing.T) {
	hostfs.SetRoot(t.TempDir())
	t.Cleanup(func() { hostfs.SetRoot("/") })

	err := NewHostVerifier(false).Verify("alice", "pw")
	require.ErrorIs(t, err, ErrAuthBackend)
}

func TestHumanAuthError(t *testing.T) {
	require.Equal(t, "", HumanAuthError(nil))
	require.Equal(t, "Invalid credentials.", HumanAuthError(ErrInvalidCredentials))
	require.Equal(t, "Invalid credentials.", HumanAuthError(ErrUserLocked))
	require.Contains(t, HumanAuthError(errors.New("boom")), "boom")
}
