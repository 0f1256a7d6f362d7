package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"net/netip"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/go-i2p/go-relayselect/lib/config"
	"github.com/go-i2p/go-relayselect/lib/hsring"
	"github.com/go-i2p/go-relayselect/lib/netview"
	"github.com/go-i2p/go-relayselect/lib/relay"
	"github.com/go-i2p/go-relayselect/lib/sampler"
	"github.com/go-i2p/go-relayselect/lib/selection"
	"github.com/go-i2p/go-relayselect/lib/util"
)

var log = logger.GetGoI2PLogger()

// app holds what every subcommand needs once the persistent flags are
// processed.
type app struct {
	viewPath string
	seed     uint64

	onlyPrefixes   []string
	avoidPrefixes  []string
	avoidNicknames []string

	cfg      config.ConfigDefaults
	view     *netview.View
	selector *selection.Selector
	src      sampler.Source
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.WithError(err).Error("relayselect failed")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "relayselect",
		Short:         "Pick relays for circuits from a network view",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&config.CfgFile, "config", "", "config file (default is $HOME/"+config.BaseDirName+"/config.yaml)")
	flags.StringVar(&a.viewPath, "view", "view.yaml", "network view document")
	flags.Uint64Var(&a.seed, "seed", 0, "seed for reproducible picks (0 uses a random seed)")
	flags.StringSliceVar(&a.onlyPrefixes, "only-prefix", nil, "only use relays with an address in one of these networks")
	flags.StringSliceVar(&a.avoidPrefixes, "avoid-prefix", nil, "never use relays with an address in these networks")
	flags.StringSliceVar(&a.avoidNicknames, "avoid-nickname", nil, "never use relays with these nicknames")

	root.AddCommand(
		a.pathCommand(),
		a.pickCommand(),
		a.checkCommand(),
		a.hsdirsCommand(),
		a.showCommand(),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	if err := config.InitConfig(); err != nil {
		return err
	}
	a.cfg = config.CurrentConfig()
	if err := config.Validate(a.cfg); err != nil {
		return err
	}

	if !util.CheckFileExists(a.viewPath) {
		return oops.Code("view_not_found").With("path", a.viewPath).Errorf("network view document not found")
	}
	view, err := netview.LoadFile(a.viewPath, a.cfg.Weights.ViewOptions()...)
	if err != nil {
		return err
	}
	a.view = view

	filters, err := a.filters()
	if err != nil {
		return err
	}
	a.selector, err = selection.New(view, selection.WithConfig(a.cfg), selection.WithFilters(filters...))
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("seed") {
		a.src = sampler.NewSource(a.seed)
	} else {
		a.src = sampler.NewSecureSource()
	}

	log.WithFields(logger.Fields{
		"at":     "(app) load",
		"view":   a.viewPath,
		"relays": view.Len(),
	}).Debug("network view loaded")
	return nil
}

func (a *app) pathCommand() *cobra.Command {
	var (
		roleNames []string
		ports     []uint
	)
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Build a path with no two hops related",
		RunE: func(cmd *cobra.Command, _ []string) error {
			roles, err := parseRoles(roleNames)
			if err != nil {
				return err
			}
			targets, err := targetPorts(ports)
			if err != nil {
				return err
			}
			profiles := a.selector.PathProfiles(roles)
			if len(targets) > 0 {
				base := profiles
				profiles = func(i int, role relay.Role) selection.UsageProfile {
					if role == relay.RoleExit {
						return selection.ExitProfile(a.cfg.Selection, targets...)
					}
					return base(i, role)
				}
			}
			path, err := a.selector.BuildPath(a.src, roles, profiles)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, r := range path {
				printHop(out, i, roles[i], r)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&roleNames, "roles", []string{"guard", "middle", "exit"}, "roles of each hop in order")
	cmd.Flags().UintSliceVar(&ports, "port", nil, "IPv4 ports the exit must allow")
	return cmd
}

func (a *app) pickCommand() *cobra.Command {
	var (
		roleName string
		count    int
		flexible bool
	)
	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Pick relays for one role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, err := relay.ParseRole(roleName)
			if err != nil {
				return err
			}
			p := a.selector.DefaultProfile(role)
			p.Flexible = flexible
			out := cmd.OutOrStdout()
			if count == 1 {
				res, err := a.selector.Pick(a.src, p, nil)
				if err != nil {
					return err
				}
				printHop(out, 0, role, res.Relay)
				fmt.Fprintf(out, "weight %d, %s sampling\n%s\n", res.Weight, res.Mode, res.Info)
				return nil
			}
			picked, info, err := a.selector.PickN(a.src, count, p, nil)
			if err != nil {
				return err
			}
			for i, r := range picked {
				printHop(out, i, role, r)
			}
			fmt.Fprintln(out, info)
			return nil
		},
	}
	cmd.Flags().StringVar(&roleName, "role", "middle", "role to pick for")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of distinct relays")
	cmd.Flags().BoolVar(&flexible, "flexible", false, "fall back to a middle relay when nothing suits")
	return cmd
}

func (a *app) checkCommand() *cobra.Command {
	var idText, roleName string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether a relay is still suitable for a role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := relay.ParseID(idText)
			if err != nil {
				return err
			}
			role, err := relay.ParseRole(roleName)
			if err != nil {
				return err
			}
			r, ok := a.view.ByID(id)
			if !ok {
				r = placeholder(id)
			}
			if err := a.selector.Check(r, a.selector.DefaultProfile(role), nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is suitable as %s\n", r, role)
			return nil
		},
	}
	cmd.Flags().StringVar(&idText, "id", "", "relay identity (hex RSA fingerprint or base64 ed25519 key)")
	cmd.Flags().StringVar(&roleName, "role", "middle", "role to check for")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func (a *app) hsdirsCommand() *cobra.Command {
	var (
		blindedText string
		srvText     string
		number      uint64
		length      uint64
		opName      string
	)
	cmd := &cobra.Command{
		Use:   "hsdirs",
		Short: "List the directories responsible for an onion service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			blinded, err := hsring.ParseBlindedID(blindedText)
			if err != nil {
				return err
			}
			srv, err := hex.DecodeString(srvText)
			if err != nil {
				return oops.Code("invalid_shared_random").With("srv", srvText).Wrapf(err, "decoding shared random value")
			}
			op, err := parseOp(opName)
			if err != nil {
				return err
			}
			period := hsring.Period{
				Number:       number,
				Length:       time.Duration(length) * time.Minute,
				SharedRandom: srv,
			}
			dirs, err := a.selector.HsDirs(a.src, blinded, op, period)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, r := range dirs {
				printHop(out, i, relay.RoleHsDir, r)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&blindedText, "blinded", "", "blinded service key as hex")
	cmd.Flags().StringVar(&srvText, "srv", "", "shared random value for the period as hex")
	cmd.Flags().Uint64Var(&number, "period", 0, "time period number")
	cmd.Flags().Uint64Var(&length, "length", 1440, "time period length in minutes")
	cmd.Flags().StringVar(&opName, "op", "fetch", "fetch or store")
	_ = cmd.MarkFlagRequired("blinded")
	return cmd
}

func (a *app) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the loaded view in normalized form",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.view.WriteDocument(cmd.OutOrStdout())
		},
	}
}

// filters turns the prefix and nickname flags into selection filters.
func (a *app) filters() ([]selection.RelayFilter, error) {
	var out []selection.RelayFilter

	if len(a.onlyPrefixes) > 0 {
		prefixes, err := parsePrefixes(a.onlyPrefixes)
		if err != nil {
			return nil, err
		}
		within := make([]selection.RelayFilter, len(prefixes))
		for i, p := range prefixes {
			within[i] = selection.NewAddressFilter("in "+p.String(), p)
		}
		out = append(out, selection.NewAnyFilter("only-prefix", within...))
	}

	var avoid []selection.RelayFilter
	if len(a.avoidPrefixes) > 0 {
		prefixes, err := parsePrefixes(a.avoidPrefixes)
		if err != nil {
			return nil, err
		}
		avoid = append(avoid, selection.NewInvertFilter(selection.NewAddressFilter("avoid-prefix", prefixes...)))
	}
	if len(a.avoidNicknames) > 0 {
		names := a.avoidNicknames
		avoid = append(avoid, selection.NewFuncFilter("avoid-nickname", func(r *netview.Relay) bool {
			return !slices.Contains(names, r.Nickname)
		}))
	}
	if len(avoid) > 0 {
		out = append(out, selection.NewCompositeFilter("avoid", avoid...))
	}
	return out, nil
}

func parsePrefixes(in []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(in))
	for _, s := range in {
		p, err := netip.ParsePrefix(strings.TrimSpace(s))
		if err != nil {
			return nil, oops.Code("invalid_prefix").With("prefix", s).Wrapf(err, "parsing network prefix")
		}
		out = append(out, p)
	}
	return out, nil
}

func parseRoles(names []string) ([]relay.Role, error) {
	roles := make([]relay.Role, 0, len(names))
	for _, n := range names {
		role, err := relay.ParseRole(n)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func targetPorts(ports []uint) ([]relay.TargetPort, error) {
	out := make([]uint16, 0, len(ports))
	for _, p := range ports {
		if p == 0 || p > 65535 {
			return nil, oops.Code("invalid_port").With("port", p).Errorf("port out of range")
		}
		out = append(out, uint16(p))
	}
	return relay.IPv4Ports(out...), nil
}

func parseOp(s string) (hsring.Op, error) {
	switch strings.ToLower(s) {
	case "fetch":
		return hsring.OpFetch, nil
	case "store":
		return hsring.OpStore, nil
	}
	return 0, oops.Code("invalid_op").With("op", s).Errorf("unknown directory operation")
}

// placeholder stands in for a relay that is not in the view so that Check
// can report it as gone.
func placeholder(id relay.ID) *netview.Relay {
	r := &netview.Relay{}
	switch id.Kind() {
	case relay.RSA:
		copy(r.RSAIdentity[:], id.Bytes())
	case relay.Ed25519:
		copy(r.Ed25519Identity[:], id.Bytes())
		r.HasEd25519 = true
	}
	return r
}

func printHop(w io.Writer, i int, role relay.Role, r *netview.Relay) {
	addr := "-"
	if a, ok := r.PrimaryIPv4(); ok {
		addr = a.String()
	}
	fmt.Fprintf(w, "%d %-9s %s %s\n", i, role, r, addr)
}
