package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Fingerprint derives a stable cache key from everything that shapes a
// completion. Two requests collide only when the provider would see the
// same call.
func Fingerprint(req Request) string {
	h := sha256.New()
	io.WriteString(h, req.Model)
	io.WriteString(h, "\x00")
	io.WriteString(h, req.System)
	io.WriteString(h, "\x00")
	io.WriteString(h, req.Prompt)
	io.WriteString(h, "\x00")
	fmt.Fprintf(h, "%d|%g|%g", req.MaxTokens, req.Temperature, req.TopP)
	return hex.EncodeToString(h.Sum(nil))
}
