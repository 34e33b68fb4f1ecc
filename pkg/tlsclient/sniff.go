package tlsclient

// This file supplements the client handshake with two small inspection
// helpers that have no role in driving a Session but are useful to
// callers sitting in front of one: recognizing a TLS ClientHello on a raw
// byte stream, and reading its SNI host name without fully parsing it.
// Both use the record/message shapes defined elsewhere in this package.

// LooksLikeTLS reports whether the first bytes of a byte stream look like
// the start of a TLS record carrying a handshake message: a valid record
// header whose type is Handshake and whose version is one of the three
// versions this client negotiates.
func LooksLikeTLS(b []byte) bool {
	if len(b) < recordHeaderLen {
		return false
	}
	if recordType(b[0]) != recordTypeHandshake {
		return false
	}
	vers := ProtocolVersion(uint16(b[1])<<8 | uint16(b[2]))
	switch vers {
	case VersionTLS10, VersionTLS11, VersionTLS12:
		return true
	default:
		return false
	}
}

// ParseClientHelloServerName extracts the server_name extension from a
// buffer holding one complete TLS record carrying a ClientHello. It
// returns ("", nil) if the record is well-formed but carries no
// server_name extension.
func ParseClientHelloServerName(record []byte) (string, error) {
	if len(record) < recordHeaderLen {
		return "", newError(KindInvalidArgument, "buffer shorter than a record header")
	}
	if recordType(record[0]) != recordTypeHandshake {
		return "", newError(KindInvalidArgument, "first record is not a handshake record")
	}
	n := int(record[3])<<8 | int(record[4])
	if recordHeaderLen+n > len(record) {
		return "", newError(KindInvalidArgument, "record body shorter than its declared length")
	}
	body := record[recordHeaderLen : recordHeaderLen+n]

	if len(body) < 4 || body[0] != typeClientHello {
		return "", newError(KindInvalidArgument, "record does not carry a ClientHello")
	}
	msgLen := getUint24(body[1:4])
	if 4+msgLen > len(body) {
		return "", newError(KindInvalidArgument, "ClientHello length mismatch")
	}
	return parseClientHelloServerName(body[4 : 4+msgLen])
}

// parseClientHelloServerName walks a ClientHello body far enough to reach
// the extensions block and pull out the host_name entry of a server_name
// extension, if present.
func parseClientHelloServerName(body []byte) (string, error) {
	off := 0
	const fixedPrefix = 2 + 32 // version + random
	if len(body) < fixedPrefix+1 {
		return "", newError(KindInvalidArgument, "ClientHello too short")
	}
	off = fixedPrefix

	sidLen := int(body[off])
	off++
	if off+sidLen+2 > len(body) {
		return "", newError(KindInvalidArgument, "ClientHello truncated at session_id")
	}
	off += sidLen

	suitesLen := int(body[off])<<8 | int(body[off+1])
	off += 2
	if off+suitesLen+1 > len(body) {
		return "", newError(KindInvalidArgument, "ClientHello truncated at cipher_suites")
	}
	off += suitesLen

	compLen := int(body[off])
	off++
	if off+compLen > len(body) {
		return "", newError(KindInvalidArgument, "ClientHello truncated at compression_methods")
	}
	off += compLen

	if off == len(body) {
		return "", nil // no extensions block at all
	}
	if off+2 > len(body) {
		return "", newError(KindInvalidArgument, "ClientHello truncated at extensions length")
	}
	extTotal := int(body[off])<<8 | int(body[off+1])
	off += 2
	if off+extTotal > len(body) {
		return "", newError(KindInvalidArgument, "ClientHello extensions length mismatch")
	}
	exts := body[off : off+extTotal]

	for len(exts) >= 4 {
		extType := uint16(exts[0])<<8 | uint16(exts[1])
		extLen := int(exts[2])<<8 | int(exts[3])
		exts = exts[4:]
		if extLen > len(exts) {
			return "", newError(KindInvalidArgument, "extension length mismatch")
		}
		extBody := exts[:extLen]
		exts = exts[extLen:]

		if extType != extensionServerName {
			continue
		}
		if len(extBody) < 2 {
			return "", newError(KindInvalidArgument, "server_name extension too short")
		}
		listLen := int(extBody[0])<<8 | int(extBody[1])
		list := extBody[2:]
		if listLen > len(list) {
			return "", newError(KindInvalidArgument, "server_name list length mismatch")
		}
		list = list[:listLen]
		for len(list) >= 3 {
			nameType := list[0]
			nameLen := int(list[1])<<8 | int(list[2])
			list = list[3:]
			if nameLen > len(list) {
				return "", newError(KindInvalidArgument, "server_name entry length mismatch")
			}
			if nameType == 0 { // host_name
				return string(list[:nameLen]), nil
			}
			list = list[nameLen:]
		}
	}
	return "", nil
}
