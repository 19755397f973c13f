package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDeterministic(t *testing.T) {
	t.Parallel()

	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	assert.Equal(t, want, Fingerprint([]byte("hello world")))
	assert.Equal(t, Fingerprint([]byte("hello world")), Fingerprint([]byte("hello world")))
}

func TestFingerprintDistinguishesContent(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, Fingerprint([]byte("a")), Fingerprint([]byte("b")))
	assert.Len(t, Fingerprint(nil), 64)
}

func TestElementIDStableWithinJob(t *testing.T) {
	t.Parallel()

	jobID := "20260115_093000"
	first := ElementID("https://example.com/page", jobID)
	second := ElementID("https://example.com/page", jobID)
	assert.Equal(t, first, second)
	assert.Contains(t, first, "_"+jobID)
}

func TestElementIDVariesByURLAndJob(t *testing.T) {
	t.Parallel()

	jobID := "20260115_093000"
	assert.NotEqual(t,
		ElementID("https://example.com/a", jobID),
		ElementID("https://example.com/b", jobID),
	)
	assert.NotEqual(t,
		ElementID("https://example.com/a", jobID),
		ElementID("https://example.com/a", "20260116_120000"),
	)
}
