package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// verificationWords is the fixed pool that verification codes draw from.
var verificationWords = []string{
	"claw", "shell", "reef", "wave", "coral", "tide", "deep", "blue",
}

// randomHex returns n random bytes as 2n lowercase hex characters.
func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(fmt.Sprintf("storage: read random: %v", err))
	}
	return hex.EncodeToString(buf)
}

// GenerateAPIKey returns a new agent API key: "soc_" + 48 hex chars.
func GenerateAPIKey() string {
	return "soc_" + randomHex(24)
}

// GenerateClaimToken returns a new single-use claim token:
// "soc_claim_" + 32 hex chars.
func GenerateClaimToken() string {
	return "soc_claim_" + randomHex(16)
}

// GenerateVerificationCode returns a human-readable code of the form
// "<word>-<4 uppercase hex chars>".
func GenerateVerificationCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(verificationWords))))
	if err != nil {
		panic(fmt.Sprintf("storage: read random: %v", err))
	}
	word := verificationWords[n.Int64()]
	return word + "-" + strings.ToUpper(randomHex(2))
}

// claimURL builds the URL an owner visits to claim an agent.
func claimURL(baseURL, claimToken string) string {
	return strings.TrimSuffix(baseURL, "/") + "/claim/" + claimToken
}
