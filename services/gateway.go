package services

import (
	"crypto/md5"
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// GatewayConfig holds the merchant credentials for the payment gateway. It is
// built exactly once at startup and passed by reference into the signer; the
// secret itself never leaves this struct in clear form and must never be
// logged.
type GatewayConfig struct {
	MerchantID     string `envconfig:"GATEWAY_MERCHANT_ID" required:"true"`
	MerchantSecret string `envconfig:"GATEWAY_MERCHANT_SECRET" required:"true"`
}

// LoadGatewayConfig reads the merchant credentials from the environment.
// Missing credentials are a startup failure; the server must not accept
// traffic without them.
func LoadGatewayConfig() (*GatewayConfig, error) {
	var cfg GatewayConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("gateway configuration: %w", err)
	}
	// envconfig treats a set-but-empty variable as present
	if cfg.MerchantID == "" || cfg.MerchantSecret == "" {
		return nil, fmt.Errorf("gateway configuration: merchant id and secret must be non-empty")
	}
	return &cfg, nil
}

// FormatAmount renders an amount the way the gateway canonicalizes it: fixed
// point with exactly two fractional digits, no separators. Signing and
// verification must both go through this or digests stop matching end-to-end.
func FormatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

// Signer produces and checks the gateway's keyed digest over an
// (order, amount, currency) tuple. MD5 is fixed by the gateway protocol and
// cannot be swapped unilaterally.
type Signer struct {
	merchantID string
	secretHash string // uppercase hex md5 of the merchant secret, computed once
}

func NewSigner(cfg *GatewayConfig) *Signer {
	return &Signer{
		merchantID: cfg.MerchantID,
		secretHash: upperMD5(cfg.MerchantSecret),
	}
}

// Sign computes the digest authorizing the given order at the given amount.
// Pure function of its inputs plus the configured merchant credentials.
func (s *Signer) Sign(orderRef string, amount float64, currency string) string {
	return upperMD5(s.merchantID + orderRef + FormatAmount(amount) + currency + s.secretHash)
}

// MerchantID is exposed for building the outbound checkout payload.
func (s *Signer) MerchantID() string { return s.merchantID }

func upperMD5(in string) string {
	sum := md5.Sum([]byte(in))
	return strings.ToUpper(fmt.Sprintf("%x", sum))
}
