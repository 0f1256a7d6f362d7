package relay

import (
	"net/netip"
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// AddrPattern matches destination addresses in a policy rule.
type AddrPattern struct {
	// Any matches every address of either family.
	Any bool
	// Prefix is used when Any is false.
	Prefix netip.Prefix
}

// Matches reports whether addr falls under the pattern.
func (p AddrPattern) Matches(addr netip.Addr) bool {
	if p.Any {
		return true
	}
	return p.Prefix.Contains(addr.Unmap())
}

// IsWildcard reports whether the pattern covers a whole address family.
func (p AddrPattern) IsWildcard() bool {
	return p.Any || (p.Prefix.IsValid() && p.Prefix.Bits() == 0)
}

func (p AddrPattern) String() string {
	if p.Any {
		return "*"
	}
	if p.Prefix.Addr().Is6() {
		return "[" + p.Prefix.Addr().String() + "]/" + strconv.Itoa(p.Prefix.Bits())
	}
	return p.Prefix.String()
}

// PolicyRule is one accept/reject line of an exit policy.
type PolicyRule struct {
	Accept bool
	Addr   AddrPattern
	PortLo uint16
	PortHi uint16
}

func (r PolicyRule) coversPort(port uint16) bool {
	return port >= r.PortLo && port <= r.PortHi
}

func (r PolicyRule) String() string {
	verb := "reject"
	if r.Accept {
		verb = "accept"
	}
	ports := "*"
	switch {
	case r.PortLo == 1 && r.PortHi == 65535:
	case r.PortLo == r.PortHi:
		ports = strconv.Itoa(int(r.PortLo))
	default:
		ports = strconv.Itoa(int(r.PortLo)) + "-" + strconv.Itoa(int(r.PortHi))
	}
	return verb + " " + r.Addr.String() + ":" + ports
}

// ExitPolicy is an ordered rule list. Rules are evaluated top to bottom,
// the first match wins, and anything unmatched is rejected. A nil policy
// rejects everything.
type ExitPolicy struct {
	Rules []PolicyRule
}

// RejectAll returns a policy that accepts nothing.
func RejectAll() *ExitPolicy { return &ExitPolicy{} }

// Allows evaluates the policy for a known destination.
func (p *ExitPolicy) Allows(addr netip.Addr, port uint16) bool {
	if p == nil || port == 0 {
		return false
	}
	for _, r := range p.Rules {
		if r.coversPort(port) && r.Addr.Matches(addr) {
			return r.Accept
		}
	}
	return false
}

// AllowsPort evaluates the policy for a destination whose address is not
// known yet. Only rules covering a whole address family take part;
// address-specific rules are skipped.
func (p *ExitPolicy) AllowsPort(port uint16) bool {
	if p == nil || port == 0 {
		return false
	}
	for _, r := range p.Rules {
		if r.Addr.IsWildcard() && r.coversPort(port) {
			return r.Accept
		}
	}
	return false
}

// AllowsSomePort reports whether AllowsPort is true for at least one port.
func (p *ExitPolicy) AllowsSomePort() bool {
	if p == nil {
		return false
	}
	// AllowsPort is constant between rule boundaries, so only the start of
	// each interval needs checking.
	candidates := []uint16{1}
	for _, r := range p.Rules {
		if !r.Addr.IsWildcard() {
			continue
		}
		candidates = append(candidates, r.PortLo)
		if r.PortHi < 65535 {
			candidates = append(candidates, r.PortHi+1)
		}
	}
	for _, port := range candidates {
		if p.AllowsPort(port) {
			return true
		}
	}
	return false
}

// String renders the rules separated by commas.
func (p *ExitPolicy) String() string {
	if p == nil || len(p.Rules) == 0 {
		return "reject *:*"
	}
	parts := make([]string, len(p.Rules))
	for i, r := range p.Rules {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

// ParseExitPolicy parses a list of "accept|reject PATTERN:PORTS" lines.
func ParseExitPolicy(lines []string) (*ExitPolicy, error) {
	p := &ExitPolicy{Rules: make([]PolicyRule, 0, len(lines))}
	for i, line := range lines {
		r, err := ParsePolicyRule(line)
		if err != nil {
			return nil, oops.With("line", i).Wrapf(err, "parsing exit policy")
		}
		p.Rules = append(p.Rules, r)
	}
	return p, nil
}

// ParsePolicyRule parses a single rule such as "accept *:80-443" or
// "reject 10.0.0.0/8:*" or "accept [2001:db8::]/32:22".
func ParsePolicyRule(line string) (PolicyRule, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return PolicyRule{}, oops.Code("invalid_policy").In("relay").With("rule", line).Errorf("malformed policy rule %q", line)
	}

	var r PolicyRule
	switch strings.ToLower(fields[0]) {
	case "accept", "accept6":
		r.Accept = true
	case "reject", "reject6":
	default:
		return PolicyRule{}, oops.Code("invalid_policy").In("relay").With("rule", line).Errorf("unknown policy verb %q", fields[0])
	}

	target := fields[1]
	colon := strings.LastIndex(target, ":")
	if colon < 0 {
		return PolicyRule{}, oops.Code("invalid_policy").In("relay").With("rule", line).Errorf("policy rule %q has no port", line)
	}

	addr, err := parseAddrPattern(target[:colon])
	if err != nil {
		return PolicyRule{}, oops.Code("invalid_policy").In("relay").With("rule", line).Wrap(err)
	}
	r.Addr = addr

	lo, hi, err := parsePortRange(target[colon+1:])
	if err != nil {
		return PolicyRule{}, oops.Code("invalid_policy").In("relay").With("rule", line).Wrap(err)
	}
	r.PortLo, r.PortHi = lo, hi
	return r, nil
}

// ParsePortSummary converts a microdescriptor style summary, for example
// "accept 80,443" or "reject 25,119-120", into an ExitPolicy.
func ParsePortSummary(summary string) (*ExitPolicy, error) {
	fields := strings.Fields(summary)
	if len(fields) != 2 {
		return nil, oops.Code("invalid_policy").In("relay").With("summary", summary).Errorf("malformed port summary %q", summary)
	}

	var accept bool
	switch strings.ToLower(fields[0]) {
	case "accept":
		accept = true
	case "reject":
	default:
		return nil, oops.Code("invalid_policy").In("relay").With("summary", summary).Errorf("unknown summary verb %q", fields[0])
	}

	p := &ExitPolicy{}
	for _, part := range strings.Split(fields[1], ",") {
		lo, hi, err := parsePortRange(part)
		if err != nil {
			return nil, oops.Code("invalid_policy").In("relay").With("summary", summary).Wrap(err)
		}
		p.Rules = append(p.Rules, PolicyRule{Accept: accept, Addr: AddrPattern{Any: true}, PortLo: lo, PortHi: hi})
	}
	if !accept {
		p.Rules = append(p.Rules, PolicyRule{Accept: true, Addr: AddrPattern{Any: true}, PortLo: 1, PortHi: 65535})
	}
	return p, nil
}

func parseAddrPattern(s string) (AddrPattern, error) {
	switch s {
	case "*":
		return AddrPattern{Any: true}, nil
	case "*4":
		return AddrPattern{Prefix: netip.PrefixFrom(netip.IPv4Unspecified(), 0)}, nil
	case "*6":
		return AddrPattern{Prefix: netip.PrefixFrom(netip.IPv6Unspecified(), 0)}, nil
	}

	bits := -1
	if slash := strings.LastIndex(s, "/"); slash >= 0 && !strings.HasSuffix(s, "]") {
		n, err := strconv.Atoi(s[slash+1:])
		if err != nil {
			return AddrPattern{}, oops.Errorf("invalid prefix length in %q", s)
		}
		bits = n
		s = s[:slash]
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")

	addr, err := netip.ParseAddr(s)
	if err != nil {
		return AddrPattern{}, oops.Wrapf(err, "invalid address %q", s)
	}
	addr = addr.Unmap()
	if bits < 0 {
		bits = addr.BitLen()
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return AddrPattern{}, oops.Wrapf(err, "invalid prefix %s/%d", addr, bits)
	}
	return AddrPattern{Prefix: prefix}, nil
}

func parsePortRange(s string) (uint16, uint16, error) {
	if s == "*" {
		return 1, 65535, nil
	}
	loStr, hiStr, isRange := strings.Cut(s, "-")
	lo, err := parsePort(loStr)
	if err != nil {
		return 0, 0, err
	}
	if !isRange {
		return lo, lo, nil
	}
	hi, err := parsePort(hiStr)
	if err != nil {
		return 0, 0, err
	}
	if hi < lo {
		return 0, 0, oops.Errorf("port range %q is inverted", s)
	}
	return lo, hi, nil
}

func parsePort(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil || n == 0 {
		return 0, oops.Errorf("invalid port %q", s)
	}
	return uint16(n), nil
}

// TargetPort is a destination port a circuit must be able to exit to.
type TargetPort struct {
	Port uint16
	IPv6 bool
}

// SupportedBy reports whether the family-appropriate policy allows the port.
func (t TargetPort) SupportedBy(ipv4, ipv6 *ExitPolicy) bool {
	if t.IPv6 {
		return ipv6.AllowsPort(t.Port)
	}
	return ipv4.AllowsPort(t.Port)
}

func (t TargetPort) String() string {
	if t.IPv6 {
		return "[" + strconv.Itoa(int(t.Port)) + "]v6"
	}
	return strconv.Itoa(int(t.Port))
}

// IPv4Ports builds IPv4 target ports.
func IPv4Ports(ports ...uint16) []TargetPort {
	out := make([]TargetPort, len(ports))
	for i, p := range ports {
		out[i] = TargetPort{Port: p}
	}
	return out
}
