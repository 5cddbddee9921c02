// Package entraid configures authentication for a single Microsoft Entra ID
// tenant.
//
// LoadConfig reads AZURE_TENANT_ID, AZURE_CLIENT_ID and the ENTRA_* tuning
// variables (optionally from a .env file). NewCore turns the result into a
// ready *core.Core. Leaving the tenant or client id empty disables
// authentication: the core then bypasses every request.
//
//	cfg, err := entraid.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c, err := entraid.NewCore(cfg, entraid.WithLogger(slog.Default()))
package entraid
