package avatar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGravatar_URL(t *testing.T) {
	g := NewGravatar()

	assert.Equal(t,
		"http://www.gravatar.com/avatar/eba69e62f8bc92297b7a97659b5d6130?d=retro&r=g&s=100",
		g.URL("jason@example.com"))
}

func TestGravatar_KeepsCase(t *testing.T) {
	g := NewGravatar()

	assert.Equal(t,
		"http://www.gravatar.com/avatar/e46810a79ac774791f581045e6b707d8?d=retro&r=g&s=100",
		g.URL("Jason@Example.com"))
}

func TestGravatar_BaseWithoutSlash(t *testing.T) {
	g := Gravatar{BaseURL: "https://secure.gravatar.com/avatar", Size: 40, Default: "mp", Rating: "pg"}

	assert.Equal(t,
		"https://secure.gravatar.com/avatar/eba69e62f8bc92297b7a97659b5d6130?d=mp&r=pg&s=40",
		g.URL("jason@example.com"))
}
