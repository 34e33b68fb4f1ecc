package tlsclient

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"hash"
)

// pHash implements P_hash(secret, seed) from RFC 5246 §5:
//
//	A(0) = seed
//	A(i) = HMAC_hash(secret, A(i-1))
//	P_hash(secret, seed) = HMAC_hash(secret, A(1) + seed) +
//	                       HMAC_hash(secret, A(2) + seed) + ...
//
// truncated to outLen bytes.
func pHash(newHash func() hash.Hash, secret, seed []byte, outLen int) []byte {
	h := hmac.New(newHash, secret)

	a := seed
	out := make([]byte, 0, outLen+h.Size())
	for len(out) < outLen {
		h.Reset()
		h.Write(a)
		a = h.Sum(nil)

		h.Reset()
		h.Write(a)
		h.Write(seed)
		out = h.Sum(out)
	}
	return out[:outLen]
}

// splitSecret splits secret into two halves of ceil(len/2) bytes each, per
// RFC 2246 §6.3: if the length is odd, the two halves share the middle
// byte.
func splitSecret(secret []byte) (s1, s2 []byte) {
	half := (len(secret) + 1) / 2
	s1 = secret[:half]
	s2 = secret[len(secret)-half:]
	return
}

// xorBytes XORs b into a in place; both must have equal length.
func xorBytes(a, b []byte) {
	for i := range a {
		a[i] ^= b[i]
	}
}

// prf is the TLS pseudo-random function (spec §4.1). For version >= TLS
// 1.2 it is P_SHA256(secret, label||seed); for earlier versions it is
// P_MD5(S1, label||seed) XOR P_SHA1(S2, label||seed) over a secret split
// in half. seedParts are concatenated after the label to form the full
// seed, matching the label/seed construction used for master secret, key
// expansion, and Finished verify_data.
func prf(version ProtocolVersion, secret []byte, outLen int, label string, seedParts ...[]byte) []byte {
	seed := make([]byte, 0, len(label)+totalLen(seedParts))
	seed = append(seed, label...)
	for _, p := range seedParts {
		seed = append(seed, p...)
	}

	if version >= VersionTLS12 {
		return pHash(sha256.New, secret, seed, outLen)
	}

	s1, s2 := splitSecret(secret)
	md5Out := pHash(md5.New, s1, seed, outLen)
	sha1Out := pHash(sha1.New, s2, seed, outLen)
	xorBytes(md5Out, sha1Out)
	return md5Out
}

func totalLen(parts [][]byte) int {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	return n
}

// Labels used throughout the handshake (spec §4.1, §4.5).
const (
	labelMasterSecret    = "master secret"
	labelKeyExpansion    = "key expansion"
	labelClientFinished  = "client finished"
	labelServerFinished  = "server finished"
)

// finishedVerifyDataLen is always 12 bytes, regardless of negotiated
// version (spec §4.5, §8 testable property).
const finishedVerifyDataLen = 12
