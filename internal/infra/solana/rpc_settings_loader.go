// internal/infra/solana/rpc_settings_loader.go
package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	smpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// RPCSettings は課金付き RPC プロバイダの接続設定です。
// Secret Manager には {"endpoint": "...", "apiKey": "..."} 形式で保存します。
type RPCSettings struct {
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"apiKey"`
}

// ResolvedEndpoint returns the endpoint with the api key appended the way
// most hosted providers expect (path suffix).
func (s RPCSettings) ResolvedEndpoint() string {
	ep := strings.TrimRight(strings.TrimSpace(s.Endpoint), "/")
	if ep == "" {
		return ""
	}
	if key := strings.TrimSpace(s.APIKey); key != "" {
		return ep + "/" + key
	}
	return ep
}

// LoadRPCSettings は GCP Secret Manager から RPC 接続設定を読み込みます。
//
// projectID: GCP プロジェクト ID
// secretID : 例 "presale-solana-rpc"
func LoadRPCSettings(ctx context.Context, projectID, secretID string) (*RPCSettings, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("secretmanager.NewClient: %w", err)
	}
	defer client.Close()

	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, secretID)

	res, err := client.AccessSecretVersion(ctx, &smpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return nil, fmt.Errorf("access secret version %s: %w", name, err)
	}

	var s RPCSettings
	if err := json.Unmarshal(res.Payload.Data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal secret json: %w", err)
	}
	if strings.TrimSpace(s.Endpoint) == "" {
		return nil, fmt.Errorf("secret %s has no endpoint", secretID)
	}
	return &s, nil
}
