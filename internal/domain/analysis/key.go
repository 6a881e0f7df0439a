package analysis

import (
	"crypto/sha256"
	"encoding/hex"
)

// CacheKey hashes everything that determines a provider's answer. endpoint
// names self-hosted backends and is empty for hosted APIs.
func CacheKey(provider, model, endpoint, language, code string) string {
	return digest(provider, model, endpoint, language, code)
}

// FlightKey scopes a cache key to one credential, so callers only share an
// in-flight call (and its error) with others using the same key.
func FlightKey(cacheKey, credential string) string {
	return digest(cacheKey, credential)
}

func digest(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{'|'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
