package anchor

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadABI(t *testing.T) {
	registryABI, err := loadABI()
	require.NoError(t, err)

	method, ok := registryABI.Methods["getRecord"]
	require.True(t, ok, "ABI must expose getRecord")
	assert.Len(t, method.Inputs, 1)
	assert.Len(t, method.Outputs, 4)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		expectError bool
	}{
		{
			name: "valid",
			cfg:  Config{RPCURL: "http://node.example:8545", ContractAddress: "0x1111111111111111111111111111111111111111"},
		},
		{
			name:        "missing RPC URL",
			cfg:         Config{ContractAddress: "0x1111111111111111111111111111111111111111"},
			expectError: true,
		},
		{
			name:        "missing contract address",
			cfg:         Config{RPCURL: "http://node.example:8545"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDecodeRecord(t *testing.T) {
	anchored := time.Date(2026, 1, 12, 9, 30, 0, 0, time.UTC)

	t.Run("existing record", func(t *testing.T) {
		record, err := decodeRecord([]interface{}{
			"0x9a55e3b2f1c4d77e0a3b1f2e4c5d6a7b8c9d0e1f",
			big.NewInt(anchored.Unix()),
			"QmAnchoredAddress",
			true,
		})
		require.NoError(t, err)

		assert.Equal(t, "0x9a55e3b2f1c4d77e0a3b1f2e4c5d6a7b8c9d0e1f", record.Issuer)
		assert.Equal(t, anchored, record.Timestamp)
		assert.Equal(t, "QmAnchoredAddress", record.CID)
	})

	t.Run("no record anchored", func(t *testing.T) {
		_, err := decodeRecord([]interface{}{"", big.NewInt(0), "", false})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("wrong arity", func(t *testing.T) {
		_, err := decodeRecord([]interface{}{"issuer"})
		assert.Error(t, err)
	})

	t.Run("wrong types", func(t *testing.T) {
		_, err := decodeRecord([]interface{}{1, "ts", 3, "exists"})
		assert.Error(t, err)
	})
}
