package utils

import (
    "encoding/base64"
    "strings"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

const testSecret = "test-download-secret"

func TestDownloadTokenRoundTrip(t *testing.T) {
    token, exp := MintDownloadToken(testSecret, 42, 7, 99, 15*time.Minute)
    require.NotEmpty(t, token)
    require.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), exp, 2*time.Second)

    grant, err := VerifyDownloadToken(testSecret, token, time.Now())
    require.NoError(t, err)
    assert.Equal(t, uint64(42), grant.ProductID)
    assert.Equal(t, uint64(7), grant.OrderID)
    assert.Equal(t, uint64(99), grant.UserID)
    assert.Equal(t, exp.UnixMilli(), grant.ExpiresAt.UnixMilli())
}

func TestDownloadTokenExpiry(t *testing.T) {
    token, _ := MintDownloadToken(testSecret, 1, 2, 3, 15*time.Minute)

    // Just inside the window the grant is valid.
    _, err := VerifyDownloadToken(testSecret, token, time.Now().Add(14*time.Minute))
    require.NoError(t, err)

    // One minute past expiry it is dead, no matter that the signature
    // still checks out.
    _, err = VerifyDownloadToken(testSecret, token, time.Now().Add(16*time.Minute))
    assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestDownloadTokenWrongSecret(t *testing.T) {
    token, _ := MintDownloadToken(testSecret, 1, 2, 3, 15*time.Minute)
    _, err := VerifyDownloadToken("some-other-secret", token, time.Now())
    assert.ErrorIs(t, err, ErrTokenSignature)
}

func TestDownloadTokenTamperedPayload(t *testing.T) {
    token, _ := MintDownloadToken(testSecret, 1, 2, 3, 15*time.Minute)
    dot := strings.IndexByte(token, '.')
    require.Positive(t, dot)

    // Swap the product ID in the payload but keep the original signature.
    enc := base64.RawURLEncoding
    payload, err := enc.DecodeString(token[:dot])
    require.NoError(t, err)
    forged := strings.Replace(string(payload), "1:", "1000:", 1)
    forgedToken := enc.EncodeToString([]byte(forged)) + token[dot:]

    _, err = VerifyDownloadToken(testSecret, forgedToken, time.Now())
    assert.ErrorIs(t, err, ErrTokenSignature)
}

func TestDownloadTokenTamperedSignature(t *testing.T) {
    token, _ := MintDownloadToken(testSecret, 1, 2, 3, 15*time.Minute)
    flipped := token[:len(token)-1]
    if token[len(token)-1] == 'A' {
        flipped += "B"
    } else {
        flipped += "A"
    }
    _, err := VerifyDownloadToken(testSecret, flipped, time.Now())
    // Depending on which byte was flipped the base64 may no longer decode.
    assert.Error(t, err)
}

func TestDownloadTokenMalformed(t *testing.T) {
    enc := base64.RawURLEncoding
    cases := map[string]string{
        "empty":          "",
        "no dot":         enc.EncodeToString([]byte("1:2:3:4")),
        "trailing dot":   enc.EncodeToString([]byte("1:2:3:4")) + ".",
        "bad base64":     "!!!.###",
        "missing fields": enc.EncodeToString([]byte("1:2:3")) + "." + enc.EncodeToString([]byte("sig")),
        "non-numeric":    enc.EncodeToString([]byte("a:b:c:d")) + "." + enc.EncodeToString([]byte("sig")),
    }
    for name, token := range cases {
        t.Run(name, func(t *testing.T) {
            _, err := VerifyDownloadToken(testSecret, token, time.Now())
            assert.ErrorIs(t, err, ErrTokenMalformed)
        })
    }
}
