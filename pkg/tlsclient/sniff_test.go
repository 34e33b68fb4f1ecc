package tlsclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildClientHelloRecord(t *testing.T, serverName string) []byte {
	t.Helper()
	msg := &clientHelloMsg{
		vers:         VersionTLS12,
		random:       [32]byte{},
		cipherSuites: advertisedSuiteIDs(),
		serverName:   serverName,
	}
	body, err := msg.marshalBody()
	require.NoError(t, err)

	handshakeBody := make([]byte, 4+len(body))
	handshakeBody[0] = typeClientHello
	putUint24(handshakeBody[1:4], len(body))
	copy(handshakeBody[4:], body)

	record := make([]byte, recordHeaderLen+len(handshakeBody))
	copy(record, header(recordTypeHandshake, VersionTLS12, len(handshakeBody)))
	copy(record[recordHeaderLen:], handshakeBody)
	return record
}

func TestLooksLikeTLSRecognizesHandshakeRecord(t *testing.T) {
	record := buildClientHelloRecord(t, "example.com")
	assert.True(t, LooksLikeTLS(record))
}

func TestLooksLikeTLSRejectsNonHandshake(t *testing.T) {
	assert.False(t, LooksLikeTLS([]byte("GET / HTTP/1.1\r\n")))
	assert.False(t, LooksLikeTLS([]byte{1, 2}))
}

func TestParseClientHelloServerNameExtractsHostName(t *testing.T) {
	record := buildClientHelloRecord(t, "example.com")
	name, err := ParseClientHelloServerName(record)
	require.NoError(t, err)
	assert.Equal(t, "example.com", name)
}

func TestParseClientHelloServerNameEmptyWhenAbsent(t *testing.T) {
	record := buildClientHelloRecord(t, "")
	name, err := ParseClientHelloServerName(record)
	require.NoError(t, err)
	assert.Empty(t, name)
}
