package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashKey_ProducesEncodedArgon2idHash(t *testing.T) {
	req := require.New(t)

	hash, err := HashKey("s3cret")
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))
	req.Len(strings.Split(hash, "$"), 6)
}

func TestCompareKey_AcceptsTheOriginalKey(t *testing.T) {
	req := require.New(t)

	hash, err := HashKey("s3cret")
	req.NoError(err)

	ok, err := CompareKey("s3cret", hash)
	req.NoError(err)
	req.True(ok)
}

func TestCompareKey_RejectsAWrongKey(t *testing.T) {
	req := require.New(t)

	hash, err := HashKey("s3cret")
	req.NoError(err)

	ok, err := CompareKey("not-the-key", hash)
	req.NoError(err)
	req.False(ok)
}

func TestCompareKey_RejectsMalformedHash(t *testing.T) {
	req := require.New(t)

	_, err := CompareKey("s3cret", "not-an-encoded-hash")
	req.Error(err)
}

func TestHashKey_SaltsEveryHash(t *testing.T) {
	req := require.New(t)

	first, err := HashKey("s3cret")
	req.NoError(err)
	second, err := HashKey("s3cret")
	req.NoError(err)

	req.NotEqual(first, second)
}
