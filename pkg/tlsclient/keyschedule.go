package tlsclient

// deriveMasterSecret computes the 48-byte master secret from the
// pre-master secret and both randoms (spec §4.1 "master secret").
func deriveMasterSecret(version ProtocolVersion, preMaster, clientRandom, serverRandom []byte) []byte {
	return prf(version, preMaster, 48, labelMasterSecret, clientRandom, serverRandom)
}

// keyMaterial holds the sliced output of the key-expansion PRF, one set
// per direction, before installation into cipher specs.
type keyMaterial struct {
	clientMAC, serverMAC []byte
	clientKey, serverKey []byte
	clientIV, serverIV   []byte
}

// deriveKeys runs the key-expansion PRF and slices the output into
// per-direction MAC secret, key and IV, in the order spec §4.2 requires.
// Note the seed order is reversed relative to master-secret derivation:
// server_random || client_random.
func deriveKeys(version ProtocolVersion, suite *cipherSuite, masterSecret, clientRandom, serverRandom []byte) keyMaterial {
	macLen := suite.macLen
	keyLen := suite.keyLen
	ivLen := suite.ivLen

	blockLen := 2 * (macLen + keyLen + ivLen)
	block := prf(version, masterSecret, blockLen, labelKeyExpansion, serverRandom, clientRandom)

	var km keyMaterial
	off := 0
	km.clientMAC, off = block[off:off+macLen], off+macLen
	km.serverMAC, off = block[off:off+macLen], off+macLen
	km.clientKey, off = block[off:off+keyLen], off+keyLen
	km.serverKey, off = block[off:off+keyLen], off+keyLen
	km.clientIV, off = block[off:off+ivLen], off+ivLen
	km.serverIV, off = block[off:off+ivLen], off+ivLen
	return km
}

// installKeys installs client-direction (TX for the client) and
// server-direction (RX for the client) key material into the given
// pending cipher specs (spec §4.2 "Install into the pending TX and RX
// cipher specs respectively").
func installKeys(txPending, rxPending *cipherSpec, suite *cipherSuite, km keyMaterial) error {
	if err := txPending.install(suite, km.clientMAC, km.clientKey, km.clientIV); err != nil {
		return err
	}
	if err := rxPending.install(suite, km.serverMAC, km.serverKey, km.serverIV); err != nil {
		return err
	}
	return nil
}
