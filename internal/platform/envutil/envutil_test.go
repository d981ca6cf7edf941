package envutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	t.Setenv("PITWALL_TEST_STR", "  value  ")
	assert.Equal(t, "value", String("PITWALL_TEST_STR", "def"))

	t.Setenv("PITWALL_TEST_STR", "   ")
	assert.Equal(t, "def", String("PITWALL_TEST_STR", "def"))
}

func TestIntAndFloat(t *testing.T) {
	t.Setenv("PITWALL_TEST_INT", "42")
	assert.Equal(t, 42, Int("PITWALL_TEST_INT", 1))

	t.Setenv("PITWALL_TEST_INT", "nope")
	assert.Equal(t, 1, Int("PITWALL_TEST_INT", 1))

	t.Setenv("PITWALL_TEST_FLOAT", "0.5")
	assert.InDelta(t, 0.5, Float("PITWALL_TEST_FLOAT", 0.2), 1e-9)

	t.Setenv("PITWALL_TEST_FLOAT", "")
	assert.InDelta(t, 0.2, Float("PITWALL_TEST_FLOAT", 0.2), 1e-9)
}

func TestBool(t *testing.T) {
	cases := map[string]bool{"1": true, "TRUE": true, "on": true, "0": false, "off": false, "no": false}
	for raw, want := range cases {
		t.Setenv("PITWALL_TEST_BOOL", raw)
		assert.Equal(t, want, Bool("PITWALL_TEST_BOOL", !want), raw)
	}
	t.Setenv("PITWALL_TEST_BOOL", "maybe")
	assert.True(t, Bool("PITWALL_TEST_BOOL", true))
}

func TestDuration(t *testing.T) {
	t.Setenv("PITWALL_TEST_SECONDS", "15")
	assert.Equal(t, 15*time.Second, Duration("PITWALL_TEST_SECONDS", 3))

	t.Setenv("PITWALL_TEST_SECONDS", "")
	assert.Equal(t, 3*time.Second, Duration("PITWALL_TEST_SECONDS", 3))
}
