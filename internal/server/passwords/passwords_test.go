package passwords

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHash_Format(t *testing.T) {
	h := Hasher{Iterations: 1000}

	enc, err := h.Hash("correct horse")
	require.NoError(t, err)

	parts := strings.Split(enc, "$")
	require.Len(t, parts, 3)
	assert.Equal(t, "pbkdf2:sha256:1000", parts[0])
	assert.Len(t, parts[1], SaltLength)
	assert.Len(t, parts[2], 64)
	assert.NotContains(t, enc, "correct horse")
}

func TestHash_SaltsDiffer(t *testing.T) {
	h := Hasher{Iterations: 1000}

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHash_DefaultIterations(t *testing.T) {
	enc, err := Hasher{}.Hash("pw")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(enc, "pbkdf2:sha256:600000$"))
}

func TestVerify_RoundTrip(t *testing.T) {
	h := Hasher{Iterations: 1000}
	enc, err := h.Hash("s3cret")
	require.NoError(t, err)

	ok, err := h.Verify(enc, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(enc, "S3cret")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_KnownVectors(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"sha256", "pbkdf2:sha256:1000$Ab3dEf6hIj9kLm0n$c7d5f040b6f5f3d93b939e9c15c109a676c4dd674a116ac1c911187fc30464cc"},
		{"sha512", "pbkdf2:sha512:1000$Ab3dEf6hIj9kLm0n$0cbbe106775e51c455c698669b1377e034ffdb9f7c23ecf3181f97441f8d3a15c22b1aca1edd1588f98a140a6427354124eaba28029cc87794539db341b4cdbd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := Hasher{}.Verify(tt.encoded, "correct horse")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestVerify_Bcrypt(t *testing.T) {
	b, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := Hasher{}.Verify(string(b), "letmein")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Hasher{}.Verify(string(b), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_Malformed(t *testing.T) {
	for _, enc := range []string{
		"",
		"plaintext",
		"scrypt:32768:8:1$salt$abcd",
		"pbkdf2:md5:1000$salt$abcd",
		"pbkdf2:sha256:zero$salt$abcd",
		"$2a$broken",
	} {
		_, err := Hasher{}.Verify(enc, "pw")
		assert.ErrorIs(t, err, ErrUnsupportedHash, enc)
	}
}
