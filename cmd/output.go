package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/scitags/ifprobe-go/inventory"
	"github.com/scitags/ifprobe-go/types"
)

const (
	JSON_PRETTY_INDENT string = "    "
)

var validOutputs = map[string]bool{
	"text": true,
	"json": true,
}

func checkOutput(output, verbosity string) error {
	if !validOutputs[output] {
		return fmt.Errorf("unknown output format %q", output)
	}
	if !types.ValidVerbosity(verbosity) {
		return fmt.Errorf("unknown verbosity %q", verbosity)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", JSON_PRETTY_INDENT)
	return enc.Encode(v)
}

func writeAddresses(w io.Writer, addrs []types.Address) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "INDEX\tLABEL\tFAMILY\tPREFIX\tSCOPE\tFLAGS")
	for _, a := range addrs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			a.Index, dash(a.Label), a.Family, a.Prefix(), a.Scope, dash(a.Flags.String()))
	}

	return tw.Flush()
}

func writeInterfaces(w io.Writer, ifaces []inventory.Interface) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "INDEX\tNAME\tTYPE\tSPEED\tDEFAULT\tADDRESSES")
	for _, i := range ifaces {
		speed := "unknown"
		if i.SpeedBps != nil {
			speed = humanBps(*i.SpeedBps)
		}

		prefixes := make([]string, 0, len(i.Addresses))
		for _, a := range i.Addresses {
			prefixes = append(prefixes, a.Prefix().String())
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\n",
			i.Index, i.Name, i.Type, speed, i.Default, dash(strings.Join(prefixes, ",")))
	}

	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
