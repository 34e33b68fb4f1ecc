package tlsclient

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"hash"
)

// Cipher suite codes advertised by this client, in preference order
// (spec §6, §3 "Cipher suite catalog").
const (
	suiteRSAAES256CBCSHA256 uint16 = 0x003D
	suiteRSAAES128CBCSHA256 uint16 = 0x003C
	suiteRSAAES256CBCSHA    uint16 = 0x0035
	suiteRSAAES128CBCSHA    uint16 = 0x002F
)

// cipherSuite bundles the algorithm choices for one RSA-key-exchange,
// AES-CBC, HMAC-SHA-family suite. All four suites this client supports
// share the same shape; only key length and MAC hash differ.
type cipherSuite struct {
	id     uint16
	name   string
	keyLen int
	ivLen  int // block size; CBC IV length
	macLen int
	// hashNew constructs the hash.Hash used for HMAC-ing records. The PRF
	// does not use it: prf.go picks P_SHA256 (>= 1.2) or P_MD5⊕P_SHA1
	// (< 1.2) from the negotiated version alone, regardless of suite.
	hashNew func() hash.Hash
}

func (s *cipherSuite) macNew(key []byte) hash.Hash {
	return hmac.New(s.hashNew, key)
}

// suiteTable is the static, ordered catalog used both to build the
// ClientHello cipher_suites list and to validate the server's choice
// (spec §3 "Cipher suite catalog", §4.6 find).
var suiteTable = []*cipherSuite{
	{id: suiteRSAAES256CBCSHA256, name: "TLS_RSA_WITH_AES_256_CBC_SHA256", keyLen: 32, ivLen: aes.BlockSize, macLen: sha256.Size, hashNew: sha256.New},
	{id: suiteRSAAES128CBCSHA256, name: "TLS_RSA_WITH_AES_128_CBC_SHA256", keyLen: 16, ivLen: aes.BlockSize, macLen: sha256.Size, hashNew: sha256.New},
	{id: suiteRSAAES256CBCSHA, name: "TLS_RSA_WITH_AES_256_CBC_SHA", keyLen: 32, ivLen: aes.BlockSize, macLen: sha1.Size, hashNew: sha1.New},
	{id: suiteRSAAES128CBCSHA, name: "TLS_RSA_WITH_AES_128_CBC_SHA", keyLen: 16, ivLen: aes.BlockSize, macLen: sha1.Size, hashNew: sha1.New},
}

// advertisedSuiteIDs returns the catalog's codes, preferred first, for use
// in a ClientHello.
func advertisedSuiteIDs() []uint16 {
	ids := make([]uint16, len(suiteTable))
	for i, s := range suiteTable {
		ids[i] = s.id
	}
	return ids
}

// findSuite is cipher-suite management's find(code) (spec §4.6): a linear
// scan of the static table. Returns nil (the null-suite sentinel) if code
// is not in the catalog.
func findSuite(code uint16) *cipherSuite {
	for _, s := range suiteTable {
		if s.id == code {
			return s
		}
	}
	return nil
}

// cipherSpec is the per-direction bundle described in spec §3 "Cipher
// spec entity": suite reference (nil = null suite sentinel), MAC secret,
// cipher key/IV state, and the 64-bit sequence number for this epoch.
//
// block and runningIV hold the derived key material once install has been
// called; before that (the null suite) both are nil and records pass
// through unencrypted with no MAC, which must never happen for non-empty
// application data (spec §3 invariant).
type cipherSpec struct {
	suite *cipherSuite

	macSecret []byte
	key       []byte
	block     cipher.Block // nil until install()

	// runningIV is mutated only for TLS 1.0, where the IV for record N+1
	// is the last ciphertext block of record N (CBC chaining across
	// records). For >=1.1 a fresh random IV is generated per record and
	// this field is unused after installation.
	runningIV []byte

	seq uint64
}

// isNull reports whether this spec is still the null sentinel: no suite
// has been installed and it must never be used to protect non-empty data
// (spec §3 invariant).
func (cs *cipherSpec) isNull() bool {
	return cs == nil || cs.suite == nil
}

// install attaches suite and key material to a previously set() spec. It
// is called once per direction after key derivation (spec §4.2).
func (cs *cipherSpec) install(suite *cipherSuite, macSecret, key, iv []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return wrapError(KindInvalidArgument, "constructing AES cipher", err)
	}
	cs.suite = suite
	cs.macSecret = macSecret
	cs.key = key
	cs.block = block
	cs.runningIV = append([]byte(nil), iv...)
	return nil
}

func (cs *cipherSpec) newMAC() hash.Hash {
	return cs.suite.macNew(cs.macSecret)
}

// setSpec is cipher-suite management's set(spec, suite) (spec §4.6):
// discard any existing dynamic state and attach the given suite,
// zero-initialized, ready for install() once keys are derived.
func setSpec(cs *cipherSpec, suite *cipherSuite) {
	zeroCipherSpec(cs)
	cs.suite = suite
}

// changeSpec is cipher-suite management's change(pending, active) (spec
// §4.6): refuse if pending is the null suite; otherwise the pending spec
// (now fully keyed) becomes active, its sequence number reset to 0, and
// pending is left clean/null so a subsequent handshake phase can reuse it.
//
// This is also where spec §4.5's ChangeCipherSpec-triggered atomic
// pending->active swap and sequence reset happen.
func changeSpec(pending, active *cipherSpec) error {
	if pending.isNull() {
		return newError(KindProtocolViolation, "change_cipher_spec with no pending cipher spec installed")
	}
	zeroCipherSpec(active)
	*active = *pending
	active.seq = 0
	*pending = cipherSpec{}
	return nil
}

// clearSpec is cipher-suite management's clear(spec) (spec §4.6):
// zeroize key material and reinstall the null suite sentinel.
func clearSpec(cs *cipherSpec) {
	zeroCipherSpec(cs)
}

func zeroCipherSpec(cs *cipherSpec) {
	zeroize(cs.macSecret)
	zeroize(cs.key)
	zeroize(cs.runningIV)
	*cs = cipherSpec{}
}

func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
