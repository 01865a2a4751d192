package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/bringup/boards"
	"go.viam.com/bringup/components/bridge/tc358768"
	"go.viam.com/bringup/components/dsp/fm34"
	"go.viam.com/bringup/config"
	"go.viam.com/bringup/machine"
	"go.viam.com/bringup/sequence"
)

func printStatus(w io.Writer, m *machine.Machine) error {
	status := m.Status()
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Device", "State", "Configured", "Details"})
	for _, name := range m.Names() {
		st := status[name]
		t.AppendRow(table.Row{name, st["state"], st["configured"], details(st)})
	}
	t.Render()
	return nil
}

// details renders the device specific status keys as sorted key=value pairs.
func details(st map[string]interface{}) string {
	var parts []string
	for k, v := range st {
		switch k {
		case "name", "state", "configured":
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

// TableAction prints the named register table.
func TableAction(c *cli.Context) error {
	variant, err := boards.ParseVariant(c.String(flagBoard))
	if err != nil {
		return err
	}
	tables := fm34.FixtureTables(boards.InfoFor(variant))
	if path := c.String(flagTables); path != "" {
		if tables, err = fm34.LoadTables(path); err != nil {
			return err
		}
	}

	var (
		tbl sequence.Table
		enc sequence.Encoder
	)
	switch name := c.Args().First(); name {
	case tableBridge:
		tbl, enc = tc358768.InitTable, sequence.EncodeBE16
	case tableFM34Init:
		tbl, enc = tables.Init, sequence.EncodeFM34
	case tableFM34Profile:
		profile := fm34.Profile(c.String(flagProfile))
		switch profile {
		case fm34.ProfileBypass, fm34.ProfileEnableNS, fm34.ProfileDisableNS:
		default:
			return errors.Errorf("unknown profile %q", profile)
		}
		tbl, enc = tables.Profile(profile), sequence.EncodeFM34
	default:
		return errors.Errorf("unknown table %q, expected one of %s, %s, %s", name, tableBridge, tableFM34Init, tableFM34Profile)
	}

	if c.Bool(flagRaw) {
		_, err := fmt.Fprint(c.App.Writer, tbl.Dump(enc))
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(c.App.Writer)
	t.AppendHeader(table.Row{"#", "Entry", "Bytes"})
	for i, e := range tbl {
		var payload string
		if e.IsWrite() {
			payload = fmt.Sprintf("% x", enc(e))
		}
		t.AppendRow(table.Row{i, e.String(), payload})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d writes", len(tbl.Writes())), fmt.Sprintf("%d ms", tbl.Delay())})
	t.Render()
	return nil
}

// SchemaAction prints the config file schema and the attribute schema of each component type.
func SchemaAction(c *cli.Context) error {
	out := map[string]interface{}{
		"config":     config.Schema(),
		"attributes": config.AttributeSchemas,
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
