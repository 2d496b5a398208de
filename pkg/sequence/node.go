package sequence

import (
	"github.com/Fontrip-Class/travel-creator-media-platforms-sub001/pkg/config"

	"github.com/bwmarrin/snowflake"
)

// ProvideNode builds the per-process snowflake node used for entity ids.
func ProvideNode(cfg *config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
