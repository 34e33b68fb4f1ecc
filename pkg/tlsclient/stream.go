package tlsclient

import (
	"go.uber.org/zap"
)

// ByteStream is the minimal bidirectional boundary spec §4.7 describes for
// both sides of a Session: a window-limited writer plus close.
type ByteStream interface {
	// Window reports how many bytes may be handed to Deliver right now.
	// 0 means the caller must wait for WindowChanged before trying again.
	Window() int
	// Deliver hands bytes to this stream. Must not be called with more
	// than Window() bytes.
	Deliver(b []byte) error
	// Close tears down the stream with reason (nil for a clean close).
	Close(reason error) error
}

// AddTLS is the sole entry point for establishing a client TLS session
// (spec §6: "add_tls(byte_stream_below, server_name) -> byte_stream_above").
// The returned stream is the application-facing plaintext boundary; below
// is wired to the raw transport. The handshake is driven entirely by
// subsequent calls into the returned stream and into below's callbacks.
// AddTLS itself runs the first TX step synchronously, so the ClientHello
// is written to below before AddTLS returns if below's window is open.
func AddTLS(below ByteStream, serverName string, opts ...Option) (*PlaintextAdapter, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(cfg)
	}

	s, err := newSession(serverName, cfg.logger, cfg.rbg, cfg.trust)
	if err != nil {
		return nil, err
	}

	s.ciphertext = &CiphertextAdapter{session: s, below: below}
	s.plaintext = &PlaintextAdapter{session: s}

	s.ciphertext.scheduleTXStep()
	return s.plaintext, nil
}

// Option configures a Session built by AddTLS.
type Option func(*options)

type options struct {
	logger *zap.Logger
	rbg    RandomBytesGenerator
	trust  TrustAnchors
}

func defaultOptions() *options {
	return &options{}
}

// WithLogger attaches a structured logger; the default is a no-op logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithRandomBytesGenerator overrides the default crypto/rand-backed RBG,
// primarily for deterministic tests.
func WithRandomBytesGenerator(rbg RandomBytesGenerator) Option {
	return func(o *options) { o.rbg = rbg }
}

// WithTrustAnchors overrides the default system certificate pool / wall
// clock, primarily for tests that need a pinned CA and a fixed time.
func WithTrustAnchors(t TrustAnchors) Option {
	return func(o *options) { o.trust = t }
}

// PlaintextAdapter is the application-facing side of a Session (spec
// §4.7 "Plaintext adapter").
type PlaintextAdapter struct {
	session *Session
	onData  func([]byte)
}

// SetReader registers the callback invoked synchronously with each
// decrypted ApplicationData payload as it arrives (spec §2: "record
// dispatcher -> ... plaintext delivery"). Must be set before the
// ciphertext adapter starts receiving data.
func (p *PlaintextAdapter) SetReader(fn func([]byte)) {
	p.onData = fn
}

// Window returns 0 until the handshake's Finished exchange completes, then
// passes through the ciphertext adapter's own window (spec §4.7).
func (p *PlaintextAdapter) Window() int {
	s := p.session
	if !s.txReady {
		return 0
	}
	return s.ciphertext.Window()
}

// Deliver sends application data as one or more ApplicationData records.
// Fails with NotConnected before the handshake completes (spec §4.7,
// §7 "NotConnected: application write before server Finished").
func (p *PlaintextAdapter) Deliver(b []byte) error {
	s := p.session
	if s.closed {
		return newError(KindNotConnected, "write attempted on a closed session")
	}
	if !s.txReady {
		return newError(KindNotConnected, "write attempted before handshake completed")
	}
	return s.sendPlaintext(recordTypeApplicationData, b)
}

// Close propagates downstream, tearing down the whole session (spec §4.7:
// "Close propagates downstream").
func (p *PlaintextAdapter) Close(reason error) error {
	return p.session.close(reason)
}

// DeliverCiphertext feeds transport-received bytes into the session's
// ciphertext adapter. It exists so a caller holding only the
// PlaintextAdapter AddTLS returns can still drive the receive side without
// reaching into package internals.
func (p *PlaintextAdapter) DeliverCiphertext(b []byte) error {
	return p.session.ciphertext.Deliver(b)
}

// CiphertextAdapter is the transport-facing side of a Session (spec §4.7
// "Ciphertext adapter").
type CiphertextAdapter struct {
	session *Session
	below   ByteStream
}

// Window passes through the downstream transport's window.
func (c *CiphertextAdapter) Window() int {
	if c.session.closed {
		return 0
	}
	return c.below.Window()
}

// WindowChanged must be invoked by the transport whenever its write window
// grows from 0; it re-schedules the TX step (spec §4.7).
func (c *CiphertextAdapter) WindowChanged() {
	c.scheduleTXStep()
}

// Deliver feeds newly-arrived transport bytes into the header-then-body
// reassembler; every fully assembled record is routed into the §4.4
// receive path. Errors close the session (spec §4.7).
func (c *CiphertextAdapter) Deliver(b []byte) error {
	s := c.session
	if s.closed {
		return newError(KindNotConnected, "delivered ciphertext bytes to a closed session")
	}
	if err := s.feedCiphertext(b); err != nil {
		s.close(err)
		return err
	}
	return nil
}

// Close tears the session down with reason.
func (c *CiphertextAdapter) Close(reason error) error {
	return c.session.close(reason)
}

// scheduleTXStep models spec §9's "one-shot deferred task": it runs
// synchronously here (the embedding event loop is expected to invoke
// AddTLS, WindowChanged, and Deliver from its own single-threaded
// callbacks, so there is no real scheduler to defer to). Each loop
// iteration consumes one pending bit; the call returns once no bit is
// pending, the window is 0, or the session is closed.
func (c *CiphertextAdapter) scheduleTXStep() {
	s := c.session
	for {
		if s.closed {
			return
		}
		if c.Window() <= 0 {
			return
		}
		if s.nextPending() == 0 {
			return
		}
		typ, payload, err := s.buildNextOutbound()
		if err != nil {
			s.close(err)
			return
		}
		if payload == nil {
			return
		}
		if err := s.transmitRecord(typ, payload); err != nil {
			s.close(err)
			return
		}
		if typ == recordTypeChangeCipherSpec {
			if err := changeSpec(s.txSpecPending, s.txSpec); err != nil {
				s.close(err)
				return
			}
		}
		if s.nextPending() == 0 {
			return
		}
		// More bits remain: loop rather than truly reschedule, since this
		// adapter has no external scheduler to hand back to.
	}
}

// sendPlaintext implements spec §4.4's send path for application data,
// fragmenting into maxPlaintext-sized records and using the active TX
// cipher spec for each.
func (s *Session) sendPlaintext(typ recordType, payload []byte) error {
	for len(payload) > 0 {
		chunk := payload
		if len(chunk) > maxPlaintext {
			chunk = chunk[:maxPlaintext]
		}
		if err := s.transmitRecord(typ, chunk); err != nil {
			s.close(err)
			return err
		}
		payload = payload[len(chunk):]
	}
	return nil
}

// transmitRecord encodes one record under the active TX spec and writes it
// downstream, committing the scratch cipher state only on successful
// hand-off (spec §4.4 step 4, §5).
func (s *Session) transmitRecord(typ recordType, payload []byte) error {
	wire, commit, err := encodeRecord(s.version, typ, payload, s.txSpec, s.rbg)
	if err != nil {
		return err
	}
	if err := s.ciphertext.below.Deliver(wire); err != nil {
		return wrapError(KindProtocolViolation, "writing record downstream", err)
	}
	commit.commit()
	return nil
}

// feedCiphertext drives the rx_state machine (spec §3, §4.4 receive path):
// accumulate the 5-byte header, then the declared body length, then
// dispatch the assembled record.
func (s *Session) feedCiphertext(b []byte) error {
	for len(b) > 0 {
		switch s.rxState {
		case rxAwaitingHeader:
			n := copy(s.rxHeader[s.rxRcvd:], b)
			s.rxRcvd += n
			b = b[n:]
			if s.rxRcvd < recordHeaderLen {
				return nil
			}
			length := int(s.rxHeader[3])<<8 | int(s.rxHeader[4])
			if length > maxCiphertext {
				return newError(KindProtocolViolation, "record length exceeds maximum")
			}
			s.rxWant = length
			s.rxData = make([]byte, length)
			s.rxRcvd = 0
			s.rxState = rxAwaitingBody
			if length == 0 {
				if err := s.dispatchRecord(); err != nil {
					return err
				}
			}

		case rxAwaitingBody:
			n := copy(s.rxData[s.rxRcvd:], b)
			s.rxRcvd += n
			b = b[n:]
			if s.rxRcvd < s.rxWant {
				return nil
			}
			if err := s.dispatchRecord(); err != nil {
				return err
			}
		}
	}
	return nil
}

// dispatchRecord decrypts the just-reassembled record and routes it by
// type (spec §4.4 step 6, §2 "record dispatcher"). Always resets rx_state
// for the next record before returning, win or lose.
func (s *Session) dispatchRecord() error {
	hdr := s.rxHeader[:]
	body := s.rxData
	s.rxHeader = [recordHeaderLen]byte{}
	s.rxData = nil
	s.rxRcvd = 0
	s.rxState = rxAwaitingHeader

	plaintext, typ, err := decodeRecord(s.version, hdr, body, s.rxSpec)
	if err != nil {
		return err
	}

	switch typ {
	case recordTypeHandshake:
		return s.handleHandshakeRecord(plaintext)
	case recordTypeChangeCipherSpec:
		if len(plaintext) != 1 || plaintext[0] != 1 {
			return newError(KindInvalidArgument, "malformed change_cipher_spec payload")
		}
		return changeSpec(s.rxSpecPending, s.rxSpec)
	case recordTypeAlert:
		return s.handleAlert(plaintext)
	case recordTypeApplicationData:
		if s.plaintext != nil && s.plaintext.onData != nil {
			s.plaintext.onData(plaintext)
		}
		return nil
	default:
		return nil // unknown record types are silently ignored (spec §4.4)
	}
}

// close is the terminal operation described in spec §5 "Cancellation": it
// de-schedules future TX activity, makes both adapters refuse further
// data, and closes the transport below with reason, idempotently.
func (s *Session) close(reason error) error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.closeErr = reason
	if reason != nil {
		s.logger.Warn("closing TLS session", zap.String("session", s.id.String()), zap.Error(reason))
	}
	if s.ciphertext != nil && s.ciphertext.below != nil {
		_ = s.ciphertext.below.Close(reason)
	}
	return reason
}
