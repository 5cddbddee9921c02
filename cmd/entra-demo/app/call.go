package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	jwtmiddleware "github.com/vmdemo/entra-jwt-middleware"
	"github.com/vmdemo/entra-jwt-middleware/client"
)

func newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call [endpoint]",
		Short: "Call the demo API with a client-credentials token",
		Long: `call acquires a token for <AZURE_CLIENT_ID>/.default from the tenant and sends
it to VM_API_BASE_URL + endpoint. AZURE_CLIENT_SECRET must be set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCall,
	}
	cmd.Flags().StringP("method", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringP("data", "d", "", "JSON request body")
	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	endpoint := "/api/hello"
	if len(args) == 1 {
		endpoint = args[0]
	}
	method, _ := cmd.Flags().GetString("method")
	data, _ := cmd.Flags().GetString("data")

	var body any
	if data != "" {
		if err := json.Unmarshal([]byte(data), &body); err != nil {
			return fmt.Errorf("--data is not valid JSON: %w", err)
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c, err := client.New(cfg, client.WithLogger(jwtmiddleware.NewLogrusLogger(logger)))
	if err != nil {
		return err
	}

	resp, err := c.Call(cmd.Context(), strings.ToUpper(method), endpoint, body)
	if err != nil {
		var statusErr *client.StatusError
		if errors.As(err, &statusErr) && statusErr.Unauthorized() {
			return fmt.Errorf("authentication error: the token is invalid or expired: %w", err)
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
