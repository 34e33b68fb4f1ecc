package tlsclient

import "crypto/rand"

// RandomBytesGenerator is the external RBG collaborator referenced by
// spec §1/§6: "Random bytes: provided by an external RBG with no
// additional input and no prediction resistance request." Production
// code uses defaultRBG; tests substitute a deterministic one to make
// client_random / pre_master_secret reproducible for known-answer tests.
type RandomBytesGenerator interface {
	Read(p []byte) error
}

type cryptoRandRBG struct{}

func (cryptoRandRBG) Read(p []byte) error {
	_, err := rand.Read(p)
	if err != nil {
		return wrapError(KindOutOfMemory, "reading random bytes", err)
	}
	return nil
}

// defaultRBG is the production RBG, backed by crypto/rand.
var defaultRBG RandomBytesGenerator = cryptoRandRBG{}

// fixedRBG is a test RBG that replays a fixed byte sequence, looping if
// exhausted. Used only by tests that need reproducible randoms.
type fixedRBG struct {
	data []byte
	pos  int
}

func (f *fixedRBG) Read(p []byte) error {
	for i := range p {
		p[i] = f.data[f.pos%len(f.data)]
		f.pos++
	}
	return nil
}
