package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSigner() *Signer {
	return NewSigner(&GatewayConfig{
		MerchantID:     "1232279",
		MerchantSecret: "S3CR3T",
	})
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{100, "100.00"},
		{12345, "12345.00"},
		{99.9, "99.90"},
		{0.005, "0.01"},
		{1234.567, "1234.57"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.amount))
	}
}

func TestSignGoldenVector(t *testing.T) {
	signer := testSigner()

	// Independently derived: md5("S3CR3T") upper-hexed, then
	// md5("1232279" + "ORDER-1" + "100.00" + "LKR" + innerHash) upper-hexed.
	digest := signer.Sign("ORDER-1", 100, "LKR")
	assert.Equal(t, "80FD9825112D3908C0D7CF6687BB7CA3", digest)
}

func TestSignIsDeterministic(t *testing.T) {
	signer := testSigner()
	first := signer.Sign("ORDER-42", 250.5, "LKR")
	second := signer.Sign("ORDER-42", 250.5, "LKR")
	assert.Equal(t, first, second)
}

func TestSignDependsOnEveryField(t *testing.T) {
	signer := testSigner()
	base := signer.Sign("ORDER-1", 100, "LKR")

	assert.NotEqual(t, base, signer.Sign("ORDER-2", 100, "LKR"))
	assert.NotEqual(t, base, signer.Sign("ORDER-1", 100.01, "LKR"))
	assert.NotEqual(t, base, signer.Sign("ORDER-1", 100, "USD"))

	other := NewSigner(&GatewayConfig{MerchantID: "1232279", MerchantSecret: "other"})
	assert.NotEqual(t, base, other.Sign("ORDER-1", 100, "LKR"))
}

func TestLoadGatewayConfigMissingCredentials(t *testing.T) {
	t.Setenv("GATEWAY_MERCHANT_ID", "")
	t.Setenv("GATEWAY_MERCHANT_SECRET", "")

	_, err := LoadGatewayConfig()
	require.Error(t, err)
}

func TestLoadGatewayConfig(t *testing.T) {
	t.Setenv("GATEWAY_MERCHANT_ID", "1232279")
	t.Setenv("GATEWAY_MERCHANT_SECRET", "S3CR3T")

	cfg, err := LoadGatewayConfig()
	require.NoError(t, err)
	assert.Equal(t, "1232279", cfg.MerchantID)
	assert.Equal(t, "S3CR3T", cfg.MerchantSecret)
}
