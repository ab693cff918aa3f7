// HERO — CLI entry point.
//
// This tool runs the demo applications of the HERO datagram transport: an
// echo server, an interactive chat client, and a reachability probe.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
