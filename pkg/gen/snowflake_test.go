package gen

import (
	"testing"

	"campaign-rewards/pkg/config"

	"github.com/stretchr/testify/require"
)

func TestNewSnowflakeNode(t *testing.T) {
	cfg := &config.Config{}
	cfg.Snowflake.NodeID = 7

	node, err := NewSnowflakeNode(cfg)
	require.NoError(t, err)
	require.NotEqual(t, node.Generate(), node.Generate())

	cfg.Snowflake.NodeID = 4096
	_, err = NewSnowflakeNode(cfg)
	require.Error(t, err)
}
