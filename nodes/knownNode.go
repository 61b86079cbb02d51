package nodes

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var ErrMalformedPeerAddress = errors.New("malformed peer address")

// KnownNodes is the set of peer base URLs this node resolves conflicts with.
type KnownNodes struct {
	sync.Mutex
	peers map[string]struct{}
}

func NewKnownNodes() *KnownNodes {
	return &KnownNodes{
		peers: map[string]struct{}{},
	}
}

// ParsePeerAddress accepts absolute http(s) URLs with a host and returns
// their normalized form.
func ParsePeerAddress(address string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(address))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPeerAddress, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q is not an http(s) url", ErrMalformedPeerAddress, address)
	}
	if len(u.Hostname()) == 0 {
		return "", fmt.Errorf("%w: %q has no host", ErrMalformedPeerAddress, address)
	}

	u.Host = strings.ToLower(u.Host)
	if u.Path == "/" {
		u.Path = ""
	}
	return u.String(), nil
}

// Register adds address to the set and returns its normalized form. A
// malformed address leaves the set unchanged.
func (kn *KnownNodes) Register(address string) (string, error) {
	peer, err := ParsePeerAddress(address)
	if err != nil {
		return "", err
	}
	kn.Lock()
	defer kn.Unlock()
	kn.peers[peer] = struct{}{}
	return peer, nil
}

func (kn *KnownNodes) RegisterNode(address string) bool {
	_, err := kn.Register(address)
	return err == nil
}

func (kn *KnownNodes) RemovePeer(address string) bool {
	peer, err := ParsePeerAddress(address)
	if err != nil {
		return false
	}
	kn.Lock()
	defer kn.Unlock()
	_, ok := kn.peers[peer]
	delete(kn.peers, peer)
	return ok
}

func (kn *KnownNodes) Contains(address string) bool {
	peer, err := ParsePeerAddress(address)
	if err != nil {
		return false
	}
	kn.Lock()
	defer kn.Unlock()
	_, ok := kn.peers[peer]
	return ok
}

// Peers returns the known peers sorted, which makes tie-breaks between
// equally long peer chains reproducible.
func (kn *KnownNodes) Peers() []string {
	kn.Lock()
	defer kn.Unlock()
	peers := maps.Keys(kn.peers)
	slices.Sort(peers)
	return peers
}

func (kn *KnownNodes) PeerLen() int {
	kn.Lock()
	defer kn.Unlock()
	return len(kn.peers)
}
