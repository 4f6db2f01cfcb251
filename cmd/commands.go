package main

import (
	"fmt"
	"log/slog"

	"github.com/scitags/ifprobe-go/internal/pubip"
	"github.com/scitags/ifprobe-go/inventory"
	"github.com/scitags/ifprobe-go/netlink"
	"github.com/scitags/ifprobe-go/sysclass"
	"github.com/scitags/ifprobe-go/types"
	"github.com/spf13/cobra"
)

func init() {
	for _, cmd := range []*cobra.Command{addrsCmd, inventoryCmd} {
		cmd.Flags().StringVarP(&outputFlag, "output", "o", "text", "output format (text or json)")
		cmd.Flags().StringVar(&verbosityFlag, "verbosity", "", "JSON verbosity (lean for a reduced output)")
	}
	addrsCmd.Flags().StringVar(&familyFlag, "family", "", "address family to dump (ipv4 or ipv6); all by default")
	speedCmd.Flags().BoolVarP(&humanFlag, "human", "H", false, "print the speed with units")
}

var (
	outputFlag    string
	verbosityFlag string
	familyFlag    string
	humanFlag     bool

	addrsCmd = &cobra.Command{
		Use:   "addrs",
		Short: "List the addresses configured on this host's interfaces.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(outputFlag, verbosityFlag); err != nil {
				return err
			}

			nc := *conf.withDefaults().Netlink
			if familyFlag != "" {
				nc.Family = familyFlag
			}

			d, err := netlink.NewDumper(&nc)
			if err != nil {
				return fmt.Errorf("couldn't create the dumper: %w", err)
			}
			slog.Debug("dumping addresses", "dumper", d)

			addrs, err := d.ListAddresses(cmd.Context())
			if err != nil {
				return fmt.Errorf("couldn't dump the addresses: %w", err)
			}

			if outputFlag == "json" {
				return writeJSON(cmd.OutOrStdout(), types.Maps(addrs, verbosityFlag))
			}
			return writeAddresses(cmd.OutOrStdout(), addrs)
		},
	}

	typeCmd = &cobra.Command{
		Use:   "type <iface>",
		Short: "Print an interface's link type as reported by sysfs.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := sysclass.NewReader(conf.withDefaults().Sysfs)
			if err != nil {
				return err
			}

			t := r.InterfaceType(args[0])
			slog.Debug("classified interface", "iface", args[0], "type", t)

			fmt.Fprintln(cmd.OutOrStdout(), t)
			return nil
		},
	}

	speedCmd = &cobra.Command{
		Use:   "speed <iface>",
		Short: "Print an interface's link speed in bits per second.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := sysclass.NewReader(conf.withDefaults().Sysfs)
			if err != nil {
				return err
			}

			bps, ok := r.SpeedBps(args[0])
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "unknown")
				return nil
			}
			slog.Debug("read interface speed", "iface", args[0], SpeedKey, bps)

			if humanFlag {
				fmt.Fprintln(cmd.OutOrStdout(), humanBps(bps))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), bps)
			}
			return nil
		},
	}

	inventoryCmd = &cobra.Command{
		Use:   "inventory",
		Short: "Join addresses, link types and speeds for every interface.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(outputFlag, verbosityFlag); err != nil {
				return err
			}

			c := conf.withDefaults()

			d, err := netlink.NewDumper(c.Netlink)
			if err != nil {
				return fmt.Errorf("couldn't create the dumper: %w", err)
			}

			col, err := newCollector(c, d)
			if err != nil {
				return err
			}

			ifaces, err := col.Collect(cmd.Context())
			if err != nil {
				return err
			}

			if outputFlag == "json" {
				return writeJSON(cmd.OutOrStdout(), types.Maps(ifaces, verbosityFlag))
			}
			return writeInterfaces(cmd.OutOrStdout(), ifaces)
		},
	}
)

func newCollector(c Config, addrs inventory.AddressSource) (*inventory.Collector, error) {
	r, err := sysclass.NewReader(c.Sysfs)
	if err != nil {
		return nil, err
	}

	col, err := inventory.NewCollector(c.Inventory, addrs, r)
	if err != nil {
		return nil, fmt.Errorf("couldn't create the collector: %w", err)
	}

	if c.PublicAddresses != nil {
		pr, err := pubip.NewResolver(c.PublicAddresses)
		if err != nil {
			return nil, fmt.Errorf("couldn't create the public address resolver: %w", err)
		}
		col.SetPublicResolver(pr)
	}

	return col, nil
}
