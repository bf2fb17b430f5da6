package secretmanager

import (
	"os"

	vault "github.com/hashicorp/vault-client-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("secretmanager", fx.Provide(ProvideVault))

// ProvideVault builds a vault client from the VAULT_* environment. It returns
// nil when VAULT_ENABLE is not set so the config loader skips secret lookup.
func ProvideVault() (*vault.Client, error) {
	if os.Getenv("VAULT_ENABLE") != "true" {
		return nil, nil
	}

	opts := []vault.ClientOption{vault.WithEnvironment()}
	if addr := os.Getenv("VAULT_ADDR"); addr != "" {
		opts = append(opts, vault.WithAddress(addr))
	}

	client, err := vault.New(opts...)
	if err != nil {
		return nil, err
	}

	if token := os.Getenv("VAULT_TOKEN"); token != "" {
		if err := client.SetToken(token); err != nil {
			return nil, err
		}
	}

	zap.L().Info("vault client ready", zap.String("addr", client.Configuration().Address))
	return client, nil
}
