// Command gotls is a minimal CLI around the tlsclient package: it dials a
// host, runs the handshake, and reports the negotiated session.
package main

func main() {
	Execute()
}
