package tlsclient

import (
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/x509"

	"go.uber.org/zap"
)

// rbgReader adapts a RandomBytesGenerator to io.Reader, for the RSA
// stdlib APIs that want one (spec §1: RSA encrypt/sign are delegated
// primitives; the RBG feeding them is still the external collaborator
// from spec §6).
type rbgReader struct{ rbg RandomBytesGenerator }

func (r *rbgReader) Read(p []byte) (int, error) {
	if err := r.rbg.Read(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// sigHashRSAPKCS1SHA256 is the {hash_algorithm, signature_algorithm} pair
// this client advertises in CertificateVerify for TLS >= 1.2 (RFC 5246
// §7.4.1.4.1): sha256(4), rsa(1), hash byte first on the wire.
const sigHashRSAPKCS1SHA256 uint16 = 0x0401

// buildNextOutbound produces the wire bytes for the lowest-priority
// pending bit (spec §4.5 "Outbound scheduling"), appends handshake
// messages to the transcript, and consumes the bit. Returns (0, nil, nil)
// if nothing is pending.
func (s *Session) buildNextOutbound() (recordType, []byte, error) {
	switch s.nextPending() {
	case pendClientHello:
		msg := &clientHelloMsg{
			vers:         clientVersion,
			random:       s.clientRandom,
			cipherSuites: advertisedSuiteIDs(),
			serverName:   s.serverName,
		}
		wire, err := buildHandshakeRecord(msg)
		if err != nil {
			return 0, nil, err
		}
		s.transcript.write(wire)
		s.consume(pendClientHello)
		return recordTypeHandshake, wire, nil

	case pendCertificate:
		var certs [][]byte
		if hasClientCertificate() {
			certs = clientCredentials.chain
		}
		wire, err := buildHandshakeRecord(&certificateMsg{certificates: certs})
		if err != nil {
			return 0, nil, err
		}
		s.transcript.write(wire)
		s.consume(pendCertificate)
		if hasClientCertificate() {
			if algo, err := clientCertAlgorithm(); err == nil {
				s.verifyPubKeyAlgo = algo
				s.schedule(pendCertificateVerify)
			}
		}
		return recordTypeHandshake, wire, nil

	case pendClientKeyExchange:
		pub, ok := s.serverPubKey.(*rsa.PublicKey)
		if !ok {
			return 0, nil, newError(KindNotSupported, "server certificate does not carry an RSA public key")
		}
		enc, err := rsa.EncryptPKCS1v15(&rbgReader{s.rbg}, pub, s.preMasterSecret)
		if err != nil {
			return 0, nil, wrapError(KindInvalidArgument, "encrypting pre_master_secret", err)
		}
		wire, err := buildHandshakeRecord(&clientKeyExchangeMsg{encryptedPreMaster: enc})
		if err != nil {
			return 0, nil, err
		}
		s.transcript.write(wire)
		s.zeroizePreMaster()
		s.consume(pendClientKeyExchange)
		return recordTypeHandshake, wire, nil

	case pendCertificateVerify:
		if s.verifyPubKeyAlgo != x509.RSA {
			return 0, nil, newError(KindNotSupported, "only RSA client certificates are supported")
		}
		rsaPriv, ok := clientCredentials.key.(*rsa.PrivateKey)
		if !ok {
			return 0, nil, newError(KindInvalidArgument, "client certificate's private key is not an RSA key")
		}
		digest := s.transcript.digest(s.version)
		var hasSigAlg bool
		var sigAlg uint16
		var hashAlg crypto.Hash
		if s.version >= VersionTLS12 {
			hasSigAlg, sigAlg, hashAlg = true, sigHashRSAPKCS1SHA256, crypto.SHA256
		} else {
			hashAlg = crypto.Hash(0) // raw PKCS#1 v1.5 over MD5||SHA1, pre-1.2
		}
		sig, err := rsa.SignPKCS1v15(&rbgReader{s.rbg}, rsaPriv, hashAlg, digest)
		if err != nil {
			return 0, nil, wrapError(KindInvalidArgument, "signing CertificateVerify", err)
		}
		wire, err := buildHandshakeRecord(&certificateVerifyMsg{hasSigAlg: hasSigAlg, sigHashAlg: sigAlg, signature: sig})
		if err != nil {
			return 0, nil, err
		}
		s.transcript.write(wire)
		s.consume(pendCertificateVerify)
		return recordTypeHandshake, wire, nil

	case pendChangeCipherSpec:
		s.consume(pendChangeCipherSpec)
		return recordTypeChangeCipherSpec, []byte{1}, nil

	case pendFinished:
		digest := s.transcript.digest(s.version)
		verifyData := prf(s.version, s.masterSecret, finishedVerifyDataLen, labelClientFinished, digest)
		wire, err := buildHandshakeRecord(&finishedMsg{verifyData: verifyData})
		if err != nil {
			return 0, nil, err
		}
		s.transcript.write(wire)
		s.consume(pendFinished)
		return recordTypeHandshake, wire, nil

	default:
		return 0, nil, nil
	}
}

// handleHandshakeRecord dispatches one fully reassembled handshake
// message (4-byte prefix + body) per spec §4.5 "Inbound handling". The
// receive path (feedCiphertext/dispatchRecord) reassembles at the record
// level only, so this assumes exactly one handshake message per record;
// it does not split a record holding multiple coalesced messages, nor
// reassemble one message fragmented across several records. A peer that
// does either (real servers sometimes coalesce ServerHello+Certificate+
// ServerHelloDone, or fragment a large Certificate) will trip the length
// check below instead of completing the handshake.
func (s *Session) handleHandshakeRecord(wire []byte) error {
	if len(wire) < 4 {
		return newError(KindInvalidArgument, "handshake record shorter than its 4-byte prefix")
	}
	msgType := wire[0]
	n := getUint24(wire[1:4])
	if 4+n != len(wire) {
		return newError(KindInvalidArgument, "handshake record length prefix mismatch")
	}
	body := wire[4:]

	if msgType == typeFinished {
		return s.handleFinished(wire, body)
	}

	// HelloRequest is the one handshake message excluded from the
	// transcript (spec §4.3).
	if msgType != typeHelloRequest {
		s.transcript.write(wire)
	}

	switch msgType {
	case typeHelloRequest:
		s.logger.Debug("ignoring HelloRequest", zap.String("session", s.id.String()))
		return nil

	case typeServerHello:
		return s.handleServerHello(body)

	case typeCertificate:
		return s.handleCertificate(body)

	case typeCertificateRequest:
		s.schedule(pendCertificate)
		return nil

	case typeServerHelloDone:
		s.schedule(pendClientKeyExchange | pendChangeCipherSpec | pendFinished)
		return nil

	default:
		s.logger.Debug("ignoring unrecognized handshake message", zap.Uint8("type", msgType))
		return nil
	}
}

func (s *Session) handleServerHello(body []byte) error {
	hello, err := unmarshalServerHello(body)
	if err != nil {
		return err
	}
	v := hello.vers
	if v < VersionTLS10 {
		return newError(KindNotSupported, "server selected a protocol version below TLS 1.0")
	}
	if v > s.version {
		return newError(KindProtocolViolation, "server attempted to upgrade beyond the advertised version")
	}
	s.version = v
	s.serverRandom = hello.random

	suite := findSuite(hello.cipherSuite)
	if suite == nil {
		return newError(KindNotSupported, "server selected an unsupported cipher suite")
	}
	setSpec(s.txSpecPending, suite)
	setSpec(s.rxSpecPending, suite)

	s.masterSecret = deriveMasterSecret(s.version, s.preMasterSecret, s.clientRandom[:], s.serverRandom[:])
	km := deriveKeys(s.version, suite, s.masterSecret, s.clientRandom[:], s.serverRandom[:])
	if err := installKeys(s.txSpecPending, s.rxSpecPending, suite, km); err != nil {
		return err
	}

	s.logger.Info("negotiated TLS session",
		zap.String("session", s.id.String()),
		zap.Stringer("version", s.version),
		zap.String("suite", suite.name),
	)
	return nil
}

func (s *Session) handleCertificate(body []byte) error {
	msg, err := unmarshalCertificate(body)
	if err != nil {
		return err
	}
	leaf, err := verifyChain(msg.certificates, s.trust)
	if err != nil {
		return err
	}
	if err := matchServerName(leaf, s.serverName); err != nil {
		return err
	}
	s.serverCertChain = msg.certificates
	s.serverPubKey = leaf.PublicKey
	return nil
}

func (s *Session) handleFinished(wire, body []byte) error {
	expected := prf(s.version, s.masterSecret, finishedVerifyDataLen, labelServerFinished, s.transcript.digest(s.version))
	finished, err := unmarshalFinished(body)
	if err != nil {
		return err
	}
	if !hmac.Equal(expected, finished.verifyData) {
		return newError(KindPermissionDenied, "server Finished verify_data mismatch")
	}
	s.transcript.write(wire)
	s.txReady = true
	s.logger.Info("handshake complete", zap.String("session", s.id.String()))
	return nil
}

// handleAlert processes a 2-byte alert payload (spec §4.5 "Alerts").
func (s *Session) handleAlert(data []byte) error {
	if len(data) != 2 {
		return newError(KindInvalidArgument, "malformed alert payload")
	}
	level := alertLevel(data[0])
	desc := alertDescription(data[1])
	switch level {
	case alertLevelWarning:
		s.logger.Warn("received TLS warning alert", zap.Stringer("description", desc))
		return nil
	case alertLevelFatal:
		return wrapError(KindPermissionDenied, "received fatal alert", errAlert{desc})
	default:
		// Spec maps any other level to EIO; this client's Kind enum has
		// no dedicated I/O kind, so it is folded into ProtocolViolation
		// (an alert level outside {warning, fatal} is itself a protocol
		// violation).
		return wrapError(KindProtocolViolation, "received alert with unrecognized level", errAlert{desc})
	}
}

type errAlert struct{ desc alertDescription }

func (e errAlert) Error() string { return "alert: " + e.desc.String() }
