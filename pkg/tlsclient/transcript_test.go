package tlsclient

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranscriptDigestMatchesRunningHash(t *testing.T) {
	tr := newTranscript()
	msgs := [][]byte{[]byte("client hello"), []byte("server hello"), []byte("certificate")}
	for _, m := range msgs {
		tr.write(m)
	}

	wantSHA256 := sha256.New()
	for _, m := range msgs {
		wantSHA256.Write(m)
	}
	assert.Equal(t, wantSHA256.Sum(nil), tr.digest(VersionTLS12))

	wantMD5SHA1 := md5.New()
	for _, m := range msgs {
		wantMD5SHA1.Write(m)
	}
	out := wantMD5SHA1.Sum(nil)
	wantSHA1 := sha1.New()
	for _, m := range msgs {
		wantSHA1.Write(m)
	}
	out = wantSHA1.Sum(out)
	assert.Equal(t, out, tr.digest(VersionTLS10))
}

func TestTranscriptDigestDoesNotConsumeRunningState(t *testing.T) {
	tr := newTranscript()
	tr.write([]byte("client hello"))

	first := tr.digest(VersionTLS12)
	tr.write([]byte("server hello"))
	second := tr.digest(VersionTLS12)

	assert.NotEqual(t, first, second, "digest() must not prevent further writes from changing later digests")

	// Calling digest() twice in a row with no intervening write must be
	// stable (snapshot, not consume).
	third := tr.digest(VersionTLS12)
	assert.Equal(t, second, third)
}

func TestTranscriptExcludesNothingItIsNotToldToExclude(t *testing.T) {
	// HelloRequest exclusion is the caller's responsibility (handleHandshakeRecord
	// skips the write call for it); transcript.write itself has no special
	// cases, so writing the same bytes twice must double their contribution.
	tr1 := newTranscript()
	tr1.write([]byte("a"))
	tr2 := newTranscript()
	tr2.write([]byte("a"))
	tr2.write([]byte("a"))
	assert.NotEqual(t, tr1.digest(VersionTLS12), tr2.digest(VersionTLS12))
}
