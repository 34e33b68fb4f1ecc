package tlsclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionSchedulesClientHelloFirst(t *testing.T) {
	s := newTestSession(t, "example.com")
	assert.Equal(t, pendClientHello, s.txPending)
	assert.Equal(t, pendClientHello, s.nextPending())
}

func TestNewSessionGeneratesDistinctRandomsPerCall(t *testing.T) {
	rbg := &fixedRBG{data: []byte{0xAA, 0xBB, 0xCC, 0xDD}}
	s1, err := newSession("a.example.com", nil, rbg, nil)
	require.NoError(t, err)
	s2, err := newSession("b.example.com", nil, rbg, nil)
	require.NoError(t, err)

	// Same fixed RBG stream, but each session reads a fresh slice from it,
	// so the randoms differ and the two pre_master_secret buffers should
	// not alias each other.
	assert.NotEqual(t, s1.clientRandom, s2.clientRandom)
	s1.preMasterSecret[0] = 0xFF
	assert.NotEqual(t, s1.preMasterSecret[0], s2.preMasterSecret[0])
}

func TestTxPendingBitPriorityOrder(t *testing.T) {
	s := newTestSession(t, "example.com")
	s.txPending = pendFinished | pendCertificate | pendChangeCipherSpec

	assert.Equal(t, pendCertificate, s.nextPending())
	s.consume(pendCertificate)
	assert.Equal(t, pendChangeCipherSpec, s.nextPending())
	s.consume(pendChangeCipherSpec)
	assert.Equal(t, pendFinished, s.nextPending())
	s.consume(pendFinished)
	assert.Zero(t, s.nextPending())
}

func TestZeroizePreMasterClearsAndNils(t *testing.T) {
	s := newTestSession(t, "example.com")
	require.NotNil(t, s.preMasterSecret)
	pm := s.preMasterSecret
	s.zeroizePreMaster()
	assert.Nil(t, s.preMasterSecret)
	assert.Equal(t, make([]byte, 48), pm)
}

func TestHasClientCertificateDefaultsToFalse(t *testing.T) {
	SetClientCredentials(nil, nil)
	assert.False(t, hasClientCertificate())
}
