package tlsclient

import "fmt"

// putUint24 / getUint24 implement the big-endian u24 length prefixes used
// throughout the handshake wire format (spec §4.5).
func putUint24(b []byte, n int) {
	b[0] = byte(n >> 16)
	b[1] = byte(n >> 8)
	b[2] = byte(n)
}

func getUint24(b []byte) int {
	return int(b[0])<<16 | int(b[1])<<8 | int(b[2])
}

// handshakeMessage is the shape every handshake message type implements
// (spec §9 "dynamic polymorphism over primitives" -> capability set).
type handshakeMessage interface {
	messageType() uint8
	marshalBody() ([]byte, error)
}

// buildHandshakeRecord wraps a message body with the 4-byte
// {type, u24 length} handshake-record prefix (spec §4.5).
func buildHandshakeRecord(msg handshakeMessage) ([]byte, error) {
	body, err := msg.marshalBody()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 4+len(body))
	out[0] = msg.messageType()
	putUint24(out[1:4], len(body))
	copy(out[4:], body)
	return out, nil
}

// --- ClientHello ---

type clientHelloMsg struct {
	vers         ProtocolVersion
	random       [32]byte
	cipherSuites []uint16
	serverName   string
}

func (m *clientHelloMsg) messageType() uint8 { return typeClientHello }

func (m *clientHelloMsg) marshalBody() ([]byte, error) {
	var extBody []byte
	if m.serverName != "" {
		// server_name extension: ServerNameList of one host_name entry.
		name := []byte(m.serverName)
		entry := make([]byte, 3+len(name))
		entry[0] = 0 // host_name
		entry[1] = byte(len(name) >> 8)
		entry[2] = byte(len(name))
		copy(entry[3:], name)

		list := make([]byte, 2+len(entry))
		list[0] = byte(len(entry) >> 8)
		list[1] = byte(len(entry))
		copy(list[2:], entry)

		ext := make([]byte, 4+len(list))
		ext[0] = byte(extensionServerName >> 8)
		ext[1] = byte(extensionServerName)
		ext[2] = byte(len(list) >> 8)
		ext[3] = byte(len(list))
		copy(ext[4:], list)
		extBody = ext
	}

	suitesLen := 2 * len(m.cipherSuites)
	// version(2) + random(32) + session_id_len(1)=0 + cipher_suites_len(2)
	// + cipher_suites + compression_methods_len(1)=1 + null(1)
	n := 2 + 32 + 1 + 2 + suitesLen + 1 + 1
	hasExt := len(extBody) > 0
	if hasExt {
		n += 2 + len(extBody)
	}

	out := make([]byte, n)
	off := 0
	out[off] = byte(m.vers >> 8)
	out[off+1] = byte(m.vers)
	off += 2
	copy(out[off:], m.random[:])
	off += 32
	out[off] = 0 // session_id_len
	off++
	out[off] = byte(suitesLen >> 8)
	out[off+1] = byte(suitesLen)
	off += 2
	for _, s := range m.cipherSuites {
		out[off] = byte(s >> 8)
		out[off+1] = byte(s)
		off += 2
	}
	out[off] = 1 // compression_methods length
	off++
	out[off] = compressionNone
	off++
	if hasExt {
		out[off] = byte(len(extBody) >> 8)
		out[off+1] = byte(len(extBody))
		off += 2
		copy(out[off:], extBody)
		off += len(extBody)
	}
	return out, nil
}

// --- ServerHello ---

type serverHelloMsg struct {
	vers        ProtocolVersion
	random      [32]byte
	cipherSuite uint16
}

func unmarshalServerHello(body []byte) (*serverHelloMsg, error) {
	if len(body) < 2+32+1 {
		return nil, newError(KindInvalidArgument, "ServerHello too short")
	}
	m := &serverHelloMsg{}
	m.vers = ProtocolVersion(uint16(body[0])<<8 | uint16(body[1]))
	copy(m.random[:], body[2:34])
	off := 34
	sidLen := int(body[off])
	off++
	if off+sidLen+2+1 > len(body) {
		return nil, newError(KindInvalidArgument, "ServerHello truncated at session_id")
	}
	off += sidLen
	m.cipherSuite = uint16(body[off])<<8 | uint16(body[off+1])
	off += 2
	// compression method (1 byte) follows; extensions may follow but are
	// not required by this client.
	return m, nil
}

// --- Certificate ---

type certificateMsg struct {
	certificates [][]byte
}

func unmarshalCertificate(body []byte) (*certificateMsg, error) {
	if len(body) < 3 {
		return nil, newError(KindInvalidArgument, "Certificate message too short")
	}
	total := getUint24(body[0:3])
	if 3+total > len(body) {
		return nil, newError(KindInvalidArgument, "Certificate message length mismatch")
	}
	rest := body[3 : 3+total]
	var certs [][]byte
	for len(rest) > 0 {
		if len(rest) < 3 {
			return nil, newError(KindInvalidArgument, "Certificate entry truncated")
		}
		certLen := getUint24(rest[0:3])
		rest = rest[3:]
		if certLen > len(rest) {
			return nil, newError(KindInvalidArgument, "Certificate entry length mismatch")
		}
		certs = append(certs, rest[:certLen])
		rest = rest[certLen:]
	}
	return &certificateMsg{certificates: certs}, nil
}

func (m *certificateMsg) messageType() uint8 { return typeCertificate }

func (m *certificateMsg) marshalBody() ([]byte, error) {
	// This client sends at most one certificate entry (spec §4.5:
	// "Client never sends >1").
	if len(m.certificates) > 1 {
		return nil, newError(KindInvalidArgument, "client certificate message may contain at most one entry")
	}
	total := 0
	for _, c := range m.certificates {
		total += 3 + len(c)
	}
	out := make([]byte, 3+total)
	putUint24(out[0:3], total)
	off := 3
	for _, c := range m.certificates {
		putUint24(out[off:off+3], len(c))
		off += 3
		copy(out[off:], c)
		off += len(c)
	}
	return out, nil
}

// --- CertificateRequest ---
// Body is ignored by this client (spec §4.5); only presence matters, to
// schedule a Certificate response.

// --- ServerHelloDone: empty body ---

// --- ClientKeyExchange (RSA) ---

type clientKeyExchangeMsg struct {
	encryptedPreMaster []byte
}

func (m *clientKeyExchangeMsg) messageType() uint8 { return typeClientKeyExchange }

func (m *clientKeyExchangeMsg) marshalBody() ([]byte, error) {
	out := make([]byte, 2+len(m.encryptedPreMaster))
	out[0] = byte(len(m.encryptedPreMaster) >> 8)
	out[1] = byte(len(m.encryptedPreMaster))
	copy(out[2:], m.encryptedPreMaster)
	return out, nil
}

// --- CertificateVerify ---

type certificateVerifyMsg struct {
	hasSigAlg    bool
	sigHashAlg   uint16 // {hash_algorithm, signature_algorithm}, TLS >= 1.2 only
	signature    []byte
}

func (m *certificateVerifyMsg) messageType() uint8 { return typeCertificateVerify }

func (m *certificateVerifyMsg) marshalBody() ([]byte, error) {
	prefixLen := 0
	if m.hasSigAlg {
		prefixLen = 2
	}
	out := make([]byte, prefixLen+2+len(m.signature))
	off := 0
	if m.hasSigAlg {
		out[0] = byte(m.sigHashAlg >> 8)
		out[1] = byte(m.sigHashAlg)
		off = 2
	}
	out[off] = byte(len(m.signature) >> 8)
	out[off+1] = byte(len(m.signature))
	copy(out[off+2:], m.signature)
	return out, nil
}

// --- Finished ---

type finishedMsg struct {
	verifyData []byte // always finishedVerifyDataLen bytes
}

func (m *finishedMsg) messageType() uint8 { return typeFinished }

func (m *finishedMsg) marshalBody() ([]byte, error) {
	if len(m.verifyData) != finishedVerifyDataLen {
		return nil, fmt.Errorf("tlsclient: Finished verify_data must be %d bytes, got %d", finishedVerifyDataLen, len(m.verifyData))
	}
	return append([]byte(nil), m.verifyData...), nil
}

func unmarshalFinished(body []byte) (*finishedMsg, error) {
	if len(body) != finishedVerifyDataLen {
		return nil, newError(KindInvalidArgument, fmt.Sprintf("Finished message must be %d bytes", finishedVerifyDataLen))
	}
	return &finishedMsg{verifyData: append([]byte(nil), body...)}, nil
}
