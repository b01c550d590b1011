// docverify is a command line tool for verifying, encrypting and inspecting wrapped OpenAttestation documents.
package main

import "github.com/information-sharing-networks/doc-verifier/internal/cli"

func main() {
	cli.Execute()
}
