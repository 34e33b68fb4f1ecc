package tlsclient

import (
	"crypto"
	"crypto/x509"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// txPendingBit is one bit of the outbound-scheduling bitset (spec §4.5
// "Outbound scheduling"). Order matters: activation always consumes the
// lowest-priority set bit first, in this declaration order.
type txPendingBit uint8

const (
	pendClientHello txPendingBit = 1 << iota
	pendCertificate
	pendClientKeyExchange
	pendCertificateVerify
	pendChangeCipherSpec
	pendFinished
)

// txPendingOrder is the priority order spec §4.5 mandates.
var txPendingOrder = []txPendingBit{
	pendClientHello,
	pendCertificate,
	pendClientKeyExchange,
	pendCertificateVerify,
	pendChangeCipherSpec,
	pendFinished,
}

// rxState is the receive-side reassembly state (spec §3).
type rxState int

const (
	rxAwaitingHeader rxState = iota
	rxAwaitingBody
)

// clientCredentials is the process-global slot for client certificate /
// private key material (spec §6: "sourced from process-global slots
// provided by the embedding platform (empty if unset)"). Session-less by
// design: the embedding platform installs credentials once at process
// start, before any Session is constructed.
var clientCredentials struct {
	chain [][]byte
	key   crypto.PrivateKey
}

// SetClientCredentials installs the process-wide client certificate
// chain and private key used for client authentication when the server
// sends a CertificateRequest. Passing a nil chain clears any previously
// installed credentials, matching the "empty if unset" default.
func SetClientCredentials(chain [][]byte, key crypto.PrivateKey) {
	clientCredentials.chain = chain
	clientCredentials.key = key
}

// Session is the single owner of all TLS client state for one
// connection, exactly as spec §3 describes it: one object, one lifetime,
// created by AddTLS and destroyed when both byte-stream adapters close.
type Session struct {
	logger *zap.Logger
	id     uuid.UUID

	version    ProtocolVersion
	serverName string

	clientRandom [32]byte
	serverRandom [32]byte

	preMasterSecret []byte // 48 bytes; zeroized after key derivation
	masterSecret    []byte // 48 bytes

	txSpec, txSpecPending *cipherSpec
	rxSpec, rxSpecPending *cipherSpec

	transcript *transcript

	serverPubKey     crypto.PublicKey        // installed once Certificate validates
	verifyPubKeyAlgo x509.PublicKeyAlgorithm // client cert's key algorithm, if a cert was sent

	txPending txPendingBit // bitset, spec §4.5
	txReady   bool         // true once server Finished verified

	rxState  rxState
	rxHeader [recordHeaderLen]byte
	rxWant   int // header[3]<<8 | header[4] once header is known
	rxData   []byte
	rxRcvd   int

	rbg      RandomBytesGenerator
	trust    TrustAnchors
	closed   bool
	closeErr error

	plaintext  *PlaintextAdapter
	ciphertext *CiphertextAdapter

	serverCertChain [][]byte // set once the server's Certificate message validates
}

// newSession constructs a Session with client_random and
// pre_master_secret generated immediately (spec §3), advertised version
// set to the highest supported, and ClientHello scheduled first.
func newSession(serverName string, logger *zap.Logger, rbg RandomBytesGenerator, trust TrustAnchors) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rbg == nil {
		rbg = defaultRBG
	}
	if trust == nil {
		trust = systemTrustAnchors{}
	}

	s := &Session{
		logger:     logger,
		id:         uuid.New(),
		version:    clientVersion,
		serverName: serverName,
		transcript: newTranscript(),
		rbg:        rbg,
		trust:      trust,

		txSpec:        &cipherSpec{},
		txSpecPending: &cipherSpec{},
		rxSpec:        &cipherSpec{},
		rxSpecPending: &cipherSpec{},
	}

	s.clientRandom = makeClientRandom(time.Now())
	if err := rbg.Read(s.clientRandom[4:]); err != nil {
		return nil, err
	}

	s.preMasterSecret = make([]byte, 48)
	s.preMasterSecret[0] = byte(clientVersion >> 8)
	s.preMasterSecret[1] = byte(clientVersion)
	if err := rbg.Read(s.preMasterSecret[2:]); err != nil {
		return nil, err
	}

	s.txPending = pendClientHello
	return s, nil
}

// makeClientRandom builds the 4-byte big-endian time_t prefix required by
// spec §3; the remaining 28 bytes are filled by the caller's RBG.
func makeClientRandom(now time.Time) [32]byte {
	var r [32]byte
	t := uint32(now.Unix())
	r[0] = byte(t >> 24)
	r[1] = byte(t >> 16)
	r[2] = byte(t >> 8)
	r[3] = byte(t)
	return r
}

// zeroizePreMaster destroys the pre-master secret once it is no longer
// needed (spec §3: "Destroyed after key derivation").
func (s *Session) zeroizePreMaster() {
	zeroize(s.preMasterSecret)
	s.preMasterSecret = nil
}

// nextPending returns the lowest-priority scheduled bit, or 0 if none is
// pending (spec §4.5).
func (s *Session) nextPending() txPendingBit {
	for _, bit := range txPendingOrder {
		if s.txPending&bit != 0 {
			return bit
		}
	}
	return 0
}

func (s *Session) schedule(bit txPendingBit) {
	s.txPending |= bit
}

func (s *Session) consume(bit txPendingBit) {
	s.txPending &^= bit
}

// hasClientCertificate reports whether process-global credentials were
// installed via SetClientCredentials.
func hasClientCertificate() bool {
	return len(clientCredentials.chain) > 0 && clientCredentials.key != nil
}

// clientCertAlgorithm inspects the installed client certificate to learn
// its public-key algorithm (spec §4.5: "the client parses it to learn its
// public-key algorithm, stores it as verify_pubkey").
func clientCertAlgorithm() (x509.PublicKeyAlgorithm, error) {
	if !hasClientCertificate() {
		return x509.UnknownPublicKeyAlgorithm, newError(KindInvalidArgument, "no client certificate installed")
	}
	cert, err := x509.ParseCertificate(clientCredentials.chain[0])
	if err != nil {
		return x509.UnknownPublicKeyAlgorithm, wrapError(KindInvalidArgument, "parsing client certificate", err)
	}
	return cert.PublicKeyAlgorithm, nil
}
