package p2p

import (
	"fmt"
	"net"
	"strconv"
)

const (
	DEFAULT_HOST = "127.0.0.1"
	DEFAULT_PORT = 8080

	ROOT_PATH         = "/"
	CHAIN_PATH        = "/chain"
	MINE_PATH         = "/mine"
	TRANSACTIONS_PATH = "/transactions/add"
	REGISTER_PATH     = "/nodes/register"
	RESOLVE_PATH      = "/nodes/resolve"
	METRICS_PATH      = "/metrics"

	CONTENT_TYPE     = "Content-Type"
	ACCEPT           = "Accept"
	APPLICATION_JSON = "application/json"
	APPLICATION_CBOR = "application/cbor"

	REWARD_AMOUNT uint64 = 2
)

// NodeId is the host:port a node listens on. It doubles as the recipient
// of the node's mining rewards.
type NodeId string

func NewNodeId(host string, port int) NodeId {
	if len(host) == 0 {
		host = DEFAULT_HOST
	}
	return NodeId(net.JoinHostPort(host, strconv.Itoa(port)))
}

func (id NodeId) String() string {
	return string(id)
}

func (id NodeId) Welcome() string {
	return fmt.Sprintf("Welcome to simple ledger node %s", id)
}
