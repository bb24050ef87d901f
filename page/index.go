package page

import (
	"github.com/intellect4all/storagecore/common"
)

// IndexPage header layout (12 bytes, little-endian):
//
//	kind(1) | page_id(4) | reserved(7)
//
// The body holds exactly one Node, encoded by Node.Encode. IndexPage keeps
// the decoded Node lazily, decoding once per load and re-encoding only when
// the caller asks it to persist the node back.
const indexHeaderSize = 12

// BodySize is the number of bytes available to a Node once the index page
// header is accounted for.
const BodySize = Size - indexHeaderSize

// IndexPage is a one-node-per-page view over a Page of KindIndex.
type IndexPage struct {
	p    *Page
	node *Node
}

// NewIndexPage creates a fresh, empty index page wrapping the given node.
func NewIndexPage(id uint32, n *Node) (*IndexPage, error) {
	p := New(id, KindIndex)
	ip := &IndexPage{p: p}
	if err := ip.SetNode(n); err != nil {
		return nil, err
	}
	return ip, nil
}

// LoadIndexPage wraps an existing Page as an IndexPage, validating its kind.
// The node body is not decoded until Node is called.
func LoadIndexPage(p *Page) (*IndexPage, error) {
	if p.Kind() != KindIndex {
		return nil, common.ErrCorruptPage
	}
	return &IndexPage{p: p}, nil
}

// Page returns the underlying raw page.
func (ip *IndexPage) Page() *Page { return ip.p }

// ID returns the page id.
func (ip *IndexPage) ID() uint32 { return ip.p.ID() }

// Node returns the page's decoded node, decoding it from the body on first
// access and caching the result.
func (ip *IndexPage) Node() (*Node, error) {
	if ip.node != nil {
		return ip.node, nil
	}
	n, err := Decode(ip.p.buf[indexHeaderSize:])
	if err != nil {
		return nil, err
	}
	ip.node = n
	return n, nil
}

// SetNode replaces the page's node and immediately re-serializes it into
// the page body, zero-filling whatever space remains. It returns
// common.ErrPageFull if the node doesn't fit in one page.
func (ip *IndexPage) SetNode(n *Node) error {
	if err := n.Encode(ip.p.buf[indexHeaderSize:]); err != nil {
		return err
	}
	ip.node = n
	return nil
}
