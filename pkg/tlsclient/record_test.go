package tlsclient

import (
	"crypto/cipher"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedCipherSpec(t *testing.T, suite *cipherSuite) *cipherSpec {
	t.Helper()
	key := make([]byte, suite.keyLen)
	for i := range key {
		key[i] = byte(i + 1)
	}
	macSecret := make([]byte, suite.macLen)
	for i := range macSecret {
		macSecret[i] = byte(0x40 + i)
	}
	iv := make([]byte, suite.ivLen)
	for i := range iv {
		iv[i] = byte(0x80 + i)
	}
	cs := &cipherSpec{}
	require.NoError(t, cs.install(suite, macSecret, key, iv))
	return cs
}

// TestRecordRoundTrip is spec §8 scenario 3: a fixed suite and key
// material, sending an 18-byte payload at tx_seq=0, must decrypt back to
// the identical bytes under the matching rx-side spec.
func TestRecordRoundTrip(t *testing.T) {
	suite := findSuite(suiteRSAAES128CBCSHA)
	require.NotNil(t, suite)

	payload := []byte("GET / HTTP/1.0\r\n\r\n")
	require.Len(t, payload, 18)

	txSpec := fixedCipherSpec(t, suite)
	rxSpec := fixedCipherSpec(t, suite) // same key material, opposite role

	rbg := &fixedRBG{data: []byte{
		0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18,
		0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f, 0x20,
	}}

	wire, commit, err := encodeRecord(VersionTLS12, recordTypeApplicationData, payload, txSpec, rbg)
	require.NoError(t, err)
	commit.commit()
	assert.EqualValues(t, 1, txSpec.seq)

	hdr := wire[:recordHeaderLen]
	body := wire[recordHeaderLen:]
	got, typ, err := decodeRecord(VersionTLS12, hdr, body, rxSpec)
	require.NoError(t, err)
	assert.Equal(t, recordTypeApplicationData, typ)
	assert.Equal(t, payload, got)
	assert.EqualValues(t, 1, rxSpec.seq)
}

func TestRecordRoundTripTLS10ChainsIV(t *testing.T) {
	suite := findSuite(suiteRSAAES128CBCSHA)
	require.NotNil(t, suite)

	txSpec := fixedCipherSpec(t, suite)
	rxSpec := fixedCipherSpec(t, suite)
	rbg := &fixedRBG{data: []byte{0}}

	var lastWire []byte
	for i := 0; i < 3; i++ {
		wire, commit, err := encodeRecord(VersionTLS10, recordTypeApplicationData, []byte("payload"), txSpec, rbg)
		require.NoError(t, err)
		commit.commit()
		lastWire = wire
	}

	hdr := lastWire[:recordHeaderLen]
	body := lastWire[recordHeaderLen:]
	_, _, err := decodeRecord(VersionTLS10, hdr, body, rxSpec)
	assert.Error(t, err, "rx running IV was never advanced for the first two records, so the third must fail to decrypt under this fresh rxSpec")
}

// TestBadPadAttack is spec §8 scenario 5: a 64-byte record whose final byte
// claims pad_len=255 must be rejected as InvalidArgument.
func TestBadPadAttack(t *testing.T) {
	suite := findSuite(suiteRSAAES128CBCSHA)
	require.NotNil(t, suite)
	rxSpec := fixedCipherSpec(t, suite)

	// 16-byte explicit IV + 48 bytes of ciphertext whose decrypted final
	// byte is 255: an implausible pad_len for a 48-byte plaintext.
	body := make([]byte, 64)
	plaintext := make([]byte, 48)
	plaintext[len(plaintext)-1] = 255
	cipher.NewCBCEncrypter(rxSpec.block, body[:16]).CryptBlocks(body[16:], plaintext)

	hdr := header(recordTypeApplicationData, VersionTLS12, len(body))
	_, _, err := decodeRecord(VersionTLS12, hdr, body, rxSpec)
	require.Error(t, err)
	var tlsErr *Error
	require.ErrorAs(t, err, &tlsErr)
	assert.Equal(t, KindInvalidArgument, tlsErr.Kind)
}

func TestExtractPaddingRejectsCorruptedPadByte(t *testing.T) {
	blockSize := 16
	payload := make([]byte, blockSize*2)
	padLen := byte(3)
	for i := 0; i < int(padLen)+1; i++ {
		payload[len(payload)-1-i] = padLen
	}
	payload[len(payload)-2] = 0xFF // corrupt one padding byte

	toRemove, good := extractPadding(payload, blockSize)
	assert.Zero(t, good)
	assert.Zero(t, toRemove)
}

func TestExtractPaddingAcceptsValidPadding(t *testing.T) {
	blockSize := 16
	payload := make([]byte, blockSize*2)
	padLen := byte(5)
	for i := 0; i <= int(padLen); i++ {
		payload[len(payload)-1-i] = padLen
	}

	toRemove, good := extractPadding(payload, blockSize)
	assert.EqualValues(t, 1, good)
	assert.Equal(t, int(padLen)+1, toRemove)
}

func TestNullCipherSpecPassesThroughHandshakeRecords(t *testing.T) {
	spec := &cipherSpec{}
	require.True(t, spec.isNull())

	payload := []byte{0x01, 0x00, 0x00, 0x00}
	wire, commit, err := encodeRecord(VersionTLS12, recordTypeHandshake, payload, spec, defaultRBG)
	require.NoError(t, err)
	commit.commit()

	got, typ, err := decodeRecord(VersionTLS12, wire[:recordHeaderLen], wire[recordHeaderLen:], spec)
	require.NoError(t, err)
	assert.Equal(t, recordTypeHandshake, typ)
	assert.Equal(t, payload, got)
}

func TestNullCipherSpecRejectsApplicationData(t *testing.T) {
	spec := &cipherSpec{}
	_, _, err := encodeRecord(VersionTLS12, recordTypeApplicationData, []byte("hi"), spec, defaultRBG)
	require.Error(t, err)
	var tlsErr *Error
	require.ErrorAs(t, err, &tlsErr)
	assert.Equal(t, KindProtocolViolation, tlsErr.Kind)
}
