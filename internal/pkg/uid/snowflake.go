package uid

import (
	"hash/fnv"
	"os"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Snowflake generates int64 ids using twitter-style snowflakes.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake creates a generator whose node number is derived from the host
// identity so replicas on different machines do not collide.
func NewSnowflake() (*Snowflake, error) {
	return NewSnowflakeWithNode(nodeNumber())
}

// NewSnowflakeWithNode creates a generator for an explicit node number (0..1023).
func NewSnowflakeWithNode(n int64) (*Snowflake, error) {
	node, err := snowflake.NewNode(n)
	if err != nil {
		return nil, err
	}
	return &Snowflake{node: node}, nil
}

// Generate returns the next id.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}

// nodeNumber hashes /etc/machine-id, or the hostname, into the node range.
// Without either it falls back to the pid.
func nodeNumber() int64 {
	src := ""
	if b, err := os.ReadFile("/etc/machine-id"); err == nil {
		src = strings.TrimSpace(string(b))
	}
	if src == "" {
		if h, err := os.Hostname(); err == nil {
			src = strings.TrimSpace(h)
		}
	}
	if src == "" {
		return int64(os.Getpid()) % (1 << snowflake.NodeBits)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(src))
	return int64(h.Sum32()) % (1 << snowflake.NodeBits)
}
