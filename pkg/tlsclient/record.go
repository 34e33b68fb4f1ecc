package tlsclient

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/subtle"
)

// header builds the 5-byte record header covering a body of length n
// (spec §4.4: "A record consists of a 5-byte header {type, version,
// length} followed by length body bytes").
func header(typ recordType, version ProtocolVersion, n int) []byte {
	return []byte{
		byte(typ),
		byte(version >> 8), byte(version),
		byte(n >> 8), byte(n),
	}
}

// seqBytes renders a 64-bit sequence number as 8 big-endian bytes, the
// form used as MAC input (spec §4.4 step 2).
func seqBytes(seq uint64) []byte {
	var b [8]byte
	for i := 7; i >= 0; i-- {
		b[i] = byte(seq)
		seq >>= 8
	}
	return b[:]
}

// pendingCommit captures the state mutation that must be deferred until
// the caller confirms a record was successfully handed off downstream
// (spec §4.4 step 4, §5: "the scratch 'next' cipher context ensures that
// if a record is produced but delivery fails, the active cipher context
// is not advanced").
type pendingCommit struct {
	spec      *cipherSpec
	runningIV []byte // non-nil only when version == TLS 1.0
}

func (c *pendingCommit) commit() {
	c.spec.seq++
	if c.runningIV != nil {
		c.spec.runningIV = c.runningIV
	}
}

// encodeRecord implements the send path of spec §4.4: build the MAC,
// assemble the to-encrypt buffer per version/cipher shape, encrypt with a
// scratch (non-committed) view of the cipher state, and return both the
// wire bytes and a commit callback the caller invokes only after the
// bytes have been successfully handed to the transport.
func encodeRecord(version ProtocolVersion, typ recordType, payload []byte, spec *cipherSpec, rbg RandomBytesGenerator) ([]byte, *pendingCommit, error) {
	if spec.isNull() {
		if len(payload) > 0 && typ == recordTypeApplicationData {
			return nil, nil, newError(KindProtocolViolation, "attempted to send application data under the null cipher spec")
		}
		hdr := header(typ, version, len(payload))
		return append(hdr, payload...), &pendingCommit{spec: spec}, nil
	}

	hdr := header(typ, version, len(payload))
	mac := hmac.New(spec.suite.hashNew, spec.macSecret)
	mac.Write(seqBytes(spec.seq))
	mac.Write(hdr)
	mac.Write(payload)
	macSum := mac.Sum(nil)

	blockSize := spec.block.BlockSize()
	plaintextLen := len(payload) + len(macSum)
	padLen := blockSize - plaintextLen%blockSize // 1..blockSize, never 0
	toEncrypt := make([]byte, plaintextLen+padLen)
	copy(toEncrypt, payload)
	copy(toEncrypt[len(payload):], macSum)
	for i := plaintextLen; i < len(toEncrypt); i++ {
		toEncrypt[i] = byte(padLen - 1)
	}

	var explicitIV []byte
	var iv []byte
	commit := &pendingCommit{spec: spec}
	if version >= VersionTLS11 {
		explicitIV = make([]byte, blockSize)
		if err := rbg.Read(explicitIV); err != nil {
			return nil, nil, err
		}
		iv = explicitIV
	} else {
		iv = spec.runningIV
	}

	ciphertext := make([]byte, len(toEncrypt))
	cbc := cipher.NewCBCEncrypter(spec.block, iv)
	cbc.CryptBlocks(ciphertext, toEncrypt)

	if version < VersionTLS11 {
		// TLS 1.0 chains: the next record's IV is this record's last
		// ciphertext block. Deferred until commit().
		commit.runningIV = append([]byte(nil), ciphertext[len(ciphertext)-blockSize:]...)
	}

	body := append(explicitIV, ciphertext...)
	outHdr := header(typ, version, len(body))
	return append(outHdr, body...), commit, nil
}

// decodeRecord implements the receive path of spec §4.4: decrypt into a
// scratch plaintext, split off IV/MAC/padding per cipher shape, recompute
// and constant-time-compare the MAC, and (only on success) increment
// rx_seq. hdr is the already-read 5-byte header, body the length-prefixed
// record body.
func decodeRecord(version ProtocolVersion, hdr, body []byte, spec *cipherSpec) ([]byte, recordType, error) {
	typ := recordType(hdr[0])

	if spec.isNull() {
		return body, typ, nil
	}

	blockSize := spec.block.BlockSize()
	macLen := spec.suite.macLen

	var iv []byte
	ciphertext := body
	if version >= VersionTLS11 {
		if len(body) < blockSize {
			return nil, 0, newError(KindInvalidArgument, "record shorter than explicit IV")
		}
		iv = body[:blockSize]
		ciphertext = body[blockSize:]
	} else {
		iv = spec.runningIV
	}

	if len(ciphertext) == 0 || len(ciphertext)%blockSize != 0 {
		return nil, 0, newError(KindInvalidArgument, "ciphertext not a multiple of the block size")
	}

	plaintext := make([]byte, len(ciphertext))
	cbc := cipher.NewCBCDecrypter(spec.block, iv)
	cbc.CryptBlocks(plaintext, ciphertext)

	if version < VersionTLS11 {
		spec.runningIV = append([]byte(nil), ciphertext[len(ciphertext)-blockSize:]...)
	}

	padLen, paddingGood := extractPadding(plaintext, blockSize)
	if padLen+macLen > len(plaintext) {
		return nil, 0, newError(KindInvalidArgument, "pad_len+1+mac_len exceeds record body length")
	}
	n := len(plaintext) - macLen - padLen

	newHdr := header(typ, version, n)
	mac := hmac.New(spec.suite.hashNew, spec.macSecret)
	mac.Write(seqBytes(spec.seq))
	mac.Write(newHdr)
	mac.Write(plaintext[:n])
	expectedMAC := mac.Sum(nil)
	gotMAC := plaintext[n : n+macLen]

	macGood := subtle.ConstantTimeCompare(expectedMAC, gotMAC) == 1
	// Both checks run unconditionally above regardless of which failed, so
	// branching on the result here to pick an error Kind costs no extra
	// timing signal beyond what's already been spent computing both.
	if paddingGood != 1 {
		return nil, 0, newError(KindInvalidArgument, "record padding verification failed")
	}
	if !macGood {
		return nil, 0, newError(KindPermissionDenied, "record MAC verification failed")
	}

	spec.seq++
	return plaintext[:n], typ, nil
}

// extractPadding validates, in constant time, PKCS#7-style padding: the
// final byte is pad_len, and the preceding pad_len bytes must also equal
// pad_len (spec §4.4 step 4, §8 "Padding check"). Returns the total
// bytes-to-remove (pad_len+1) and 1 if valid, and (0, 0) otherwise. Adapted from
// the constant-time technique the teacher uses in its own extractPadding
// (pkg/proxy/integrations/tlsHandler/conn.go), including its 256-byte
// scan bound (pad_len is a single byte, so 256 already covers every
// value it can take).
func extractPadding(payload []byte, blockSize int) (toRemove int, good byte) {
	if len(payload) < 1 || len(payload)%blockSize != 0 {
		return 0, 0
	}
	padLen := payload[len(payload)-1]

	// t's MSB is zero iff len(payload) > padLen, i.e. the claimed padding
	// plausibly fits inside the record at all.
	t := uint(len(payload)-1) - uint(padLen)
	good = byte(int32(^t) >> 31)

	toCheck := len(payload)
	if toCheck > 256 {
		toCheck = 256
	}
	for i := 0; i < toCheck; i++ {
		t := uint(padLen) - uint(i)
		mask := byte(int32(^t) >> 31) // 0xFF iff i <= padLen, else zero
		b := payload[len(payload)-1-i]
		good &^= mask & padLen ^ mask & b
	}

	good &= good << 4
	good &= good << 2
	good &= good << 1
	good = uint8(int8(good) >> 7)

	padLen &= good
	good &= 1
	toRemove = (int(padLen) + 1) * int(good)
	return
}
