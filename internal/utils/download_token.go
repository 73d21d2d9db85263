package utils

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/base64"
    "errors"
    "fmt"
    "strconv"
    "strings"
    "time"
)

// A download grant is a short-lived, server-signed authorization to fetch
// a purchased file.  It is never stored: the payload travels inside the
// token and is re-verified on every use.  The canonical payload is
// "productID:orderID:userID:expiresAtMillis"; all four fields are decimal
// integers, so the colon delimiter is unambiguous.  The wire form is
// base64url(payload) + "." + base64url(HMAC-SHA256(payload)).

// Token error sentinels.  All are non-retryable; the client must obtain a
// fresh grant.  Handlers keep them distinct for logging but collapse them
// into one generic response so failures do not reveal which check tripped.
var (
    ErrTokenMalformed = errors.New("download token malformed")
    ErrTokenExpired   = errors.New("download token expired")
    ErrTokenSignature = errors.New("download token signature mismatch")
)

// DownloadGrant carries the verified fields of a download token.
type DownloadGrant struct {
    ProductID uint64    // product the grant covers
    OrderID   uint64    // order that proved the purchase at mint time
    UserID    uint64    // user the grant was minted for
    ExpiresAt time.Time // UTC instant after which the grant is dead
}

// MintDownloadToken signs a grant for the given scope, valid for ttl from
// now.  The secret must be the server-side key from configuration; it is
// never sent to clients.
func MintDownloadToken(secret string, productID, orderID, userID uint64, ttl time.Duration) (string, time.Time) {
    exp := time.Now().UTC().Add(ttl)
    payload := canonicalPayload(productID, orderID, userID, exp.UnixMilli())
    digest := signPayload(secret, payload)
    enc := base64.RawURLEncoding
    return enc.EncodeToString([]byte(payload)) + "." + enc.EncodeToString(digest), exp
}

// VerifyDownloadToken parses and verifies a token produced by
// MintDownloadToken.  Expiry is checked before any cryptographic work so
// expired grants get the cheap, distinct failure mode.  The digest
// comparison uses hmac.Equal, which runs in constant time regardless of
// where the inputs first differ.
func VerifyDownloadToken(secret, token string, now time.Time) (DownloadGrant, error) {
    enc := base64.RawURLEncoding
    dot := strings.IndexByte(token, '.')
    if dot <= 0 || dot == len(token)-1 {
        return DownloadGrant{}, ErrTokenMalformed
    }
    payloadBytes, err := enc.DecodeString(token[:dot])
    if err != nil {
        return DownloadGrant{}, ErrTokenMalformed
    }
    suppliedDigest, err := enc.DecodeString(token[dot+1:])
    if err != nil {
        return DownloadGrant{}, ErrTokenMalformed
    }
    grant, err := parsePayload(string(payloadBytes))
    if err != nil {
        return DownloadGrant{}, err
    }
    if now.UTC().After(grant.ExpiresAt) {
        return DownloadGrant{}, ErrTokenExpired
    }
    expected := signPayload(secret, string(payloadBytes))
    if !hmac.Equal(expected, suppliedDigest) {
        return DownloadGrant{}, ErrTokenSignature
    }
    return grant, nil
}

func canonicalPayload(productID, orderID, userID uint64, expMillis int64) string {
    return fmt.Sprintf("%d:%d:%d:%d", productID, orderID, userID, expMillis)
}

func signPayload(secret, payload string) []byte {
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write([]byte(payload))
    return mac.Sum(nil)
}

func parsePayload(payload string) (DownloadGrant, error) {
    parts := strings.Split(payload, ":")
    if len(parts) != 4 {
        return DownloadGrant{}, ErrTokenMalformed
    }
    nums := make([]uint64, 3)
    for i := 0; i < 3; i++ {
        n, err := strconv.ParseUint(parts[i], 10, 64)
        if err != nil {
            return DownloadGrant{}, ErrTokenMalformed
        }
        nums[i] = n
    }
    expMillis, err := strconv.ParseInt(parts[3], 10, 64)
    if err != nil {
        return DownloadGrant{}, ErrTokenMalformed
    }
    return DownloadGrant{
        ProductID: nums[0],
        OrderID:   nums[1],
        UserID:    nums[2],
        ExpiresAt: time.UnixMilli(expMillis).UTC(),
    }, nil
}
