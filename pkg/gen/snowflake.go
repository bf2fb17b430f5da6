package gen

import (
	"fmt"

	"campaign-rewards/pkg/config"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("snowflake", fx.Provide(NewSnowflakeNode))

// NewSnowflakeNode returns the id generator for SNOWFLAKE.NODE_ID. Every
// replica must run with a distinct node id.
func NewSnowflakeNode(cfg *config.Config) (*snowflake.Node, error) {
	id := cfg.Snowflake.NodeID
	max := int64(-1 ^ (-1 << snowflake.NodeBits))
	if id < 0 || id > max {
		return nil, fmt.Errorf("snowflake node id %d out of range [0, %d]", id, max)
	}

	node, err := snowflake.NewNode(id)
	if err != nil {
		return nil, err
	}
	zap.L().Info("snowflake node ready", zap.Int64("node_id", id))
	return node, nil
}
