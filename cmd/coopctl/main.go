// Command coopctl is the operator CLI of the cooperative map service.
//
// Build with the version injected:
//
//	go build -ldflags "-X github.com/sigtopo/coop-driouch/internal/app.Version=v1.2.0" ./cmd/coopctl
package main

import (
	"os"

	"github.com/sigtopo/coop-driouch/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
