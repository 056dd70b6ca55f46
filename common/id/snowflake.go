package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init sets up the process-wide Snowflake node. Every replica needs a
// distinct node ID or message and conversation IDs can collide.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New returns the next int64 ID. IDs are time-ordered, so messages sort by
// ID in creation order and the IDs survive the decimal-string round trip
// the wire formats use.
func New() int64 {
	return node.Generate().Int64()
}
