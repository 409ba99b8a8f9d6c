// Package avatar maps an email address to a profile picture URL.
package avatar

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

type Provider interface {
	URL(email string) string
}

// Gravatar builds gravatar.com image links. The email is hashed as stored,
// without lower-casing, to keep the pictures existing users already see.
type Gravatar struct {
	BaseURL string
	Size    int
	Default string
	Rating  string
}

func NewGravatar() Gravatar {
	return Gravatar{
		BaseURL: "http://www.gravatar.com/avatar/",
		Size:    100,
		Default: "retro",
		Rating:  "g",
	}
}

func (g Gravatar) URL(email string) string {
	sum := md5.Sum([]byte(email))

	q := url.Values{}
	q.Set("s", fmt.Sprint(g.Size))
	q.Set("d", g.Default)
	q.Set("r", g.Rating)

	base := g.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + hex.EncodeToString(sum[:]) + "?" + q.Encode()
}
