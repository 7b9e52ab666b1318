package baseline

import (
	"encoding/hex"
	"net/url"
	"strings"

	"golang.org/x/crypto/sha3"
)

// maxSlugLength bounds the readable part of a snapshot name so deeply
// nested URLs stay within filesystem name limits.
const maxSlugLength = 80

// SnapshotName derives the screenshot file name for a normalized URL.
//
// The name is a readable slug of the host and path with a short
// SHA3-256 suffix of the full URL. The suffix keeps names unique when
// two URLs slug identically, for example after truncation or when they
// differ only in their query string.
func SnapshotName(pageURL string) string {
	slug := "index"
	if u, err := url.Parse(pageURL); err == nil {
		if s := slugify(u.Host + u.Path); s != "" {
			slug = s
		}
	}

	hash := sha3.Sum256([]byte(pageURL))
	return slug + "-" + hex.EncodeToString(hash[:4]) + ".png"
}

// slugify lowercases the input and replaces every character that is not
// a letter or digit with an underscore, collapsing runs.
func slugify(s string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
		if b.Len() >= maxSlugLength {
			break
		}
	}
	return strings.Trim(b.String(), "_")
}
