package tlsclient

import (
	"crypto/x509"
	"time"
)

// TrustAnchors is the X.509 collaborator spec §6 delegates trust-anchor
// policy and clock to: "Trust anchors and clock are provided by the X.509
// collaborator." Chain validation and the current time both come from
// here, not from anything this package hardcodes.
type TrustAnchors interface {
	RootPool() *x509.CertPool
	Now() time.Time
}

// systemTrustAnchors is the default TrustAnchors, backed by the host's
// system certificate pool and wall-clock time.
type systemTrustAnchors struct{}

func (systemTrustAnchors) RootPool() *x509.CertPool {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		return x509.NewCertPool()
	}
	return pool
}

func (systemTrustAnchors) Now() time.Time { return time.Now() }

// verifyChain validates a DER-encoded certificate chain (leaf first,
// spec §4.5 Certificate handling: "validate via the X.509 collaborator
// against current time") and returns the parsed leaf.
func verifyChain(chain [][]byte, anchors TrustAnchors) (*x509.Certificate, error) {
	if len(chain) == 0 {
		return nil, newError(KindIncompleteChain, "server presented an empty certificate chain")
	}

	leaf, err := x509.ParseCertificate(chain[0])
	if err != nil {
		return nil, wrapError(KindIncompleteChain, "parsing leaf certificate", err)
	}

	intermediates := x509.NewCertPool()
	for _, der := range chain[1:] {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, wrapError(KindIncompleteChain, "parsing intermediate certificate", err)
		}
		intermediates.AddCert(cert)
	}

	opts := x509.VerifyOptions{
		Roots:         anchors.RootPool(),
		Intermediates: intermediates,
		CurrentTime:   anchors.Now(),
	}
	if _, err := leaf.Verify(opts); err != nil {
		return nil, wrapError(KindIncompleteChain, "certificate chain does not validate", err)
	}
	return leaf, nil
}

// matchServerName implements spec §4.5's "verify the leaf's SubjectName
// equals server_name (byte-exact, length-equal)". No wildcard or
// suffix matching is performed, deliberately: this client checks the
// DNS SAN list and, failing that, the CN, each against the caller's
// server_name with plain string equality.
func matchServerName(leaf *x509.Certificate, serverName string) error {
	for _, name := range leaf.DNSNames {
		if name == serverName {
			return nil
		}
	}
	if leaf.Subject.CommonName == serverName {
		return nil
	}
	return newError(KindWrongName, "certificate name does not match server_name "+serverName)
}
