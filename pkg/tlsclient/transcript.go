package tlsclient

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"hash"
)

// transcript is the running handshake digest (spec §4.3). Every
// handshake record except HelloRequest is appended, whether or not it is
// semantically recognized (callers are responsible for excluding
// HelloRequest before calling write).
//
// Both hash families run in parallel from construction, since the
// version isn't known until ServerHello arrives and messages sent before
// then (ClientHello) must already be covered by whichever family is
// eventually selected. digest() picks the family based on the
// negotiated version at the point it's called.
//
// hash.Hash.Sum does not mutate the running state (the stdlib
// implementations copy internal state before finalizing), so digest()
// is naturally the snapshot-and-finalize operation the spec requires:
// the running transcript remains writable afterward.
type transcript struct {
	md5    hash.Hash
	sha1   hash.Hash
	sha256 hash.Hash
}

func newTranscript() *transcript {
	return &transcript{
		md5:    md5.New(),
		sha1:   sha1.New(),
		sha256: sha256.New(),
	}
}

// write appends data to all running digests.
func (t *transcript) write(data []byte) {
	t.md5.Write(data)
	t.sha1.Write(data)
	t.sha256.Write(data)
}

// digest snapshots and finalizes the transcript appropriate to version:
// MD5||SHA1 (36 bytes) for < TLS 1.2, SHA-256 (32 bytes) for >= TLS 1.2.
// The running digests are left usable for further writes.
func (t *transcript) digest(version ProtocolVersion) []byte {
	if version >= VersionTLS12 {
		return t.sha256.Sum(nil)
	}
	out := t.md5.Sum(nil)
	out = t.sha1.Sum(out)
	return out
}
