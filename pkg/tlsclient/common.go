// Package tlsclient implements a TLS 1.0/1.1/1.2 client endpoint: handshake
// state machine, record-layer framing, and the bulk encryption path.
//
// Primitives (block cipher, digests, HMAC, RSA, X.509 validation, random
// bytes) are delegated to the standard library, mirroring how the rest of
// this stack treats them as external collaborators rather than
// reimplementing them.
package tlsclient

import "fmt"

// ProtocolVersion is a two-byte {major, minor} TLS version number.
type ProtocolVersion uint16

const (
	VersionTLS10 ProtocolVersion = 0x0301
	VersionTLS11 ProtocolVersion = 0x0302
	VersionTLS12 ProtocolVersion = 0x0303

	// clientVersion is the highest version this client ever advertises.
	clientVersion = VersionTLS12
)

func (v ProtocolVersion) String() string {
	switch v {
	case VersionTLS10:
		return "TLS 1.0"
	case VersionTLS11:
		return "TLS 1.1"
	case VersionTLS12:
		return "TLS 1.2"
	default:
		return fmt.Sprintf("0x%04x", uint16(v))
	}
}

const (
	maxPlaintext    = 1 << 14 // maximum plaintext payload length per record
	maxCiphertext   = maxPlaintext + 2048
	recordHeaderLen = 5 // type(1) + version(2) + length(2)

	// maxHandshake is a size limit for a single handshake message body,
	// well above any message this client produces or expects (the largest
	// being a server Certificate chain). The receive path does not check
	// it; an incoming handshake message is bounded by maxCiphertext.
	maxHandshake = 1 << 20
)

// recordType is the first byte of a TLS record header.
type recordType uint8

const (
	recordTypeChangeCipherSpec recordType = 20
	recordTypeAlert            recordType = 21
	recordTypeHandshake        recordType = 22
	recordTypeApplicationData  recordType = 23
)

func (t recordType) String() string {
	switch t {
	case recordTypeChangeCipherSpec:
		return "change_cipher_spec"
	case recordTypeAlert:
		return "alert"
	case recordTypeHandshake:
		return "handshake"
	case recordTypeApplicationData:
		return "application_data"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Handshake message type bytes (RFC 5246 §7.4).
const (
	typeHelloRequest       uint8 = 0
	typeClientHello        uint8 = 1
	typeServerHello        uint8 = 2
	typeCertificate        uint8 = 11
	typeServerKeyExchange  uint8 = 12
	typeCertificateRequest uint8 = 13
	typeServerHelloDone    uint8 = 14
	typeCertificateVerify  uint8 = 15
	typeClientKeyExchange  uint8 = 16
	typeFinished           uint8 = 20
)

// compressionNone is the only compression method this client advertises
// or accepts.
const compressionNone uint8 = 0

// TLS extension numbers this client uses.
const extensionServerName uint16 = 0

// Alert levels and descriptions (RFC 5246 §7.2) — only the subset this
// client needs to recognize or emit.
type alertLevel uint8

const (
	alertLevelWarning alertLevel = 1
	alertLevelFatal   alertLevel = 2
)

type alertDescription uint8

const (
	alertCloseNotify            alertDescription = 0
	alertUnexpectedMessage      alertDescription = 10
	alertBadRecordMAC           alertDescription = 20
	alertDecryptionFailed       alertDescription = 21
	alertRecordOverflow         alertDescription = 22
	alertHandshakeFailure       alertDescription = 40
	alertBadCertificate         alertDescription = 42
	alertCertificateExpired     alertDescription = 45
	alertCertificateUnknown     alertDescription = 46
	alertIllegalParameter       alertDescription = 47
	alertUnknownCA              alertDescription = 48
	alertDecodeError            alertDescription = 50
	alertDecryptError           alertDescription = 51
	alertProtocolVersion        alertDescription = 70
	alertInternalError          alertDescription = 80
	alertUnrecognizedName       alertDescription = 112
)

func (d alertDescription) String() string {
	switch d {
	case alertCloseNotify:
		return "close_notify"
	case alertUnexpectedMessage:
		return "unexpected_message"
	case alertBadRecordMAC:
		return "bad_record_mac"
	case alertDecryptionFailed:
		return "decryption_failed"
	case alertRecordOverflow:
		return "record_overflow"
	case alertHandshakeFailure:
		return "handshake_failure"
	case alertBadCertificate:
		return "bad_certificate"
	case alertCertificateExpired:
		return "certificate_expired"
	case alertCertificateUnknown:
		return "certificate_unknown"
	case alertIllegalParameter:
		return "illegal_parameter"
	case alertUnknownCA:
		return "unknown_ca"
	case alertDecodeError:
		return "decode_error"
	case alertDecryptError:
		return "decrypt_error"
	case alertProtocolVersion:
		return "protocol_version"
	case alertInternalError:
		return "internal_error"
	case alertUnrecognizedName:
		return "unrecognized_name"
	default:
		return fmt.Sprintf("alert(%d)", uint8(d))
	}
}
