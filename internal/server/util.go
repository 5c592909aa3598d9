package server

import "crypto/rand"

// drawLetter picks a round letter uniformly from the session's pool.
func drawLetter(allowed string) string {
	if allowed == "" {
		return "A"
	}
	buf := make([]byte, 1)
	if _, err := rand.Read(buf); err != nil {
		return string(allowed[0])
	}
	return string(allowed[int(buf[0])%len(allowed)])
}
