package cli

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/computerscienceiscool/pyocd-probe/pkg/inventory"
	"github.com/computerscienceiscool/pyocd-probe/pkg/probe"
	"github.com/pterm/pterm"
)

// printer renders results as pterm tables or indented JSON.
type printer struct {
	out  io.Writer
	json bool
	sort bool
}

func (p *printer) writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.out, string(data))
	return err
}

func (p *printer) table(data pterm.TableData) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.out, out)
	return err
}

func (p *printer) boards(boards []probe.Board) error {
	if p.sort {
		boards = sortBoards(boards)
	}
	if p.json {
		return p.writeJSON(boards)
	}
	if len(boards) == 0 {
		_, err := fmt.Fprintln(p.out, "No debug probes connected")
		return err
	}

	data := pterm.TableData{{"Name", "Target", "Vendor", "Product", "Unique ID"}}
	for _, b := range boards {
		data = append(data, []string{b.Name, b.TargetName, b.VendorName, b.ProductName, b.UniqueID})
	}
	return p.table(data)
}

func (p *printer) targets(targets []probe.Target) error {
	if p.sort {
		targets = sortTargets(targets)
	}
	if p.json {
		return p.writeJSON(targets)
	}
	if len(targets) == 0 {
		_, err := fmt.Fprintln(p.out, "No targets reported")
		return err
	}

	data := pterm.TableData{{"Name", "Vendor", "Part Number", "Families", "SVD"}}
	for _, t := range targets {
		data = append(data, []string{t.Name, t.Vendor, t.PartNumber, strings.Join(t.Families, ", "), t.SVDPath})
	}
	return p.table(data)
}

func (p *printer) snapshot(snap inventory.Snapshot) error {
	if p.json {
		return nil
	}
	_, err := fmt.Fprintf(p.out, "Snapshot #%d of %d %s taken %s\n",
		snap.ID, snap.Count, snap.Kind, snap.TakenAt.Local().Format(time.RFC3339))
	return err
}

func (p *printer) snapshots(snaps []inventory.Snapshot) error {
	if p.json {
		return p.writeJSON(snaps)
	}
	if len(snaps) == 0 {
		_, err := fmt.Fprintln(p.out, "No snapshots recorded")
		return err
	}

	data := pterm.TableData{{"ID", "Kind", "Taken", "Count"}}
	for _, s := range snaps {
		data = append(data, []string{
			fmt.Sprint(s.ID),
			s.Kind,
			s.TakenAt.Local().Format(time.RFC3339),
			fmt.Sprint(s.Count),
		})
	}
	return p.table(data)
}

// sortBoards orders boards by name, then unique ID, without touching the input.
func sortBoards(boards []probe.Board) []probe.Board {
	sorted := slices.Clone(boards)
	slices.SortStableFunc(sorted, func(a, b probe.Board) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.UniqueID, b.UniqueID)
	})
	return sorted
}

// sortTargets orders targets by name, then part number, without touching the input.
func sortTargets(targets []probe.Target) []probe.Target {
	sorted := slices.Clone(targets)
	slices.SortStableFunc(sorted, func(a, b probe.Target) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.PartNumber, b.PartNumber)
	})
	return sorted
}
