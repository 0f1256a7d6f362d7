package relay

import "net/netip"

// SubnetConfig controls how many leading address bits two relays must
// share to be treated as belonging to the same network.
type SubnetConfig struct {
	V4Bits int
	V6Bits int
}

// DefaultSubnetConfig groups IPv4 relays by /16 and IPv6 relays by /32.
func DefaultSubnetConfig() SubnetConfig {
	return SubnetConfig{V4Bits: 16, V6Bits: 32}
}

// Key returns the masked prefix addr belongs to. The second return is
// false when subnet grouping is disabled for addr's family, which happens
// when the configured bit count is larger than the address width.
func (c SubnetConfig) Key(addr netip.Addr) (netip.Prefix, bool) {
	if !addr.IsValid() {
		return netip.Prefix{}, false
	}
	addr = addr.Unmap()
	bits := c.V4Bits
	if addr.Is6() {
		bits = c.V6Bits
	}
	if bits < 0 || bits > addr.BitLen() {
		return netip.Prefix{}, false
	}
	p, err := addr.Prefix(bits)
	if err != nil {
		return netip.Prefix{}, false
	}
	return p, true
}

// SameSubnet reports whether a and b share a subnet key.
func (c SubnetConfig) SameSubnet(a, b netip.Addr) bool {
	ka, ok := c.Key(a)
	if !ok {
		return false
	}
	kb, ok := c.Key(b)
	return ok && ka == kb
}

// AnySameSubnet reports whether any address of as shares a subnet with any
// address of bs.
func (c SubnetConfig) AnySameSubnet(as, bs []netip.AddrPort) bool {
	for _, a := range as {
		for _, b := range bs {
			if c.SameSubnet(a.Addr(), b.Addr()) {
				return true
			}
		}
	}
	return false
}
