package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/convocation-engine/config"
	"github.com/warp/convocation-engine/convocacao"
	"github.com/warp/convocation-engine/generic"
	"github.com/warp/convocation-engine/generic/store"
	"github.com/warp/convocation-engine/sheets"
	"github.com/warp/convocation-engine/store/sqlite"
)

// sourceFlags selects where the four tables come from. Exactly one is set.
type sourceFlags struct {
	scenario string
	file     string
	sheet    string
	sqlite   string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.scenario, "scenario", "", "Demo scenario id (see: convocar scenarios)")
	cmd.Flags().StringVar(&f.file, "file", "", "Local .xlsx workbook")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "Google Sheet id or URL")
	cmd.Flags().StringVar(&f.sqlite, "sqlite", "", "SQLite snapshot written by convocar import")
	cmd.MarkFlagsMutuallyExclusive("scenario", "file", "sheet", "sqlite")
}

// openedSource is a TableSource plus what the caller must release. When the
// tables come from a scenario, scenario is set so its config can serve as
// defaults.
type openedSource struct {
	generic.TableSource
	name     string
	scenario *convocacao.Scenario
	close    func() error
}

// open resolves the flags. cfg.Sheets decides how --sheet is fetched.
func (f *sourceFlags) open(cfg *config.Config) (*openedSource, error) {
	switch {
	case f.scenario != "":
		sc, err := convocacao.FindScenario(f.scenario)
		if err != nil {
			return nil, err
		}
		return &openedSource{
			TableSource: store.NewMemoryFrom(sc.Data),
			name:        "scenario " + sc.ID,
			scenario:    &sc,
			close:       noClose,
		}, nil

	case f.file != "":
		return &openedSource{TableSource: sheets.FileSource{Path: f.file}, name: f.file, close: noClose}, nil

	case f.sheet != "":
		id := sheets.ExtractSheetID(f.sheet)
		return &openedSource{TableSource: cfg.Sheets.NewSource(id), name: "sheet " + id, close: noClose}, nil

	case f.sqlite != "":
		s, err := sqlite.New(f.sqlite)
		if err != nil {
			return nil, err
		}
		return &openedSource{TableSource: s, name: f.sqlite, close: s.Close}, nil
	}

	return nil, errors.New("one of --scenario, --file, --sheet or --sqlite is required")
}

func noClose() error { return nil }

func closeSource(src *openedSource, err *error) {
	if cerr := src.close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("close %s: %w", src.name, cerr)
	}
}
