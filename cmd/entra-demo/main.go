// Command entra-demo serves the demo API behind the Entra ID gate and calls
// it with client credentials.
package main

import (
	"os"

	"github.com/vmdemo/entra-jwt-middleware/cmd/entra-demo/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
