package services

import (
	"testing"

	"github.com/reefspotter/backend/internal/logger"
	"github.com/reefspotter/backend/internal/types"
)

func TestParseFilterTag(t *testing.T) {
	cases := []struct {
		raw  string
		want types.FilterTag
		ok   bool
	}{
		{raw: "", want: types.FilterAll, ok: true},
		{raw: "All Species", want: types.FilterAll, ok: true},
		{raw: "GBR", want: types.FilterGBR, ok: true},
		{raw: "GSR", want: types.FilterGSR, ok: true},
		{raw: "gbr", want: types.FilterAll, ok: false},
		{raw: "Atlantis", want: types.FilterAll, ok: false},
	}
	for _, tc := range cases {
		got, ok := types.ParseFilterTag(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseFilterTag(%q)=(%q,%v), want (%q,%v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFilterSpeciesUntaggedAlwaysIncluded(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	cs := NewCatalogService(nil, log, nil)

	gbr := tagged("clownfish", "GBR")
	gsr := tagged("seadragon", "GSR")
	untagged := tagged("moon wrasse", "")
	all := []*types.Species{gbr, gsr, untagged}

	for _, tag := range []types.FilterTag{types.FilterAll, types.FilterGBR, types.FilterGSR} {
		filtered := cs.FilterSpecies(all, tag)
		found := false
		for _, s := range filtered {
			if s == untagged {
				found = true
			}
		}
		if !found {
			t.Fatalf("untagged species missing under filter %q", tag)
		}
	}

	gbrView := cs.FilterSpecies(all, types.FilterGBR)
	if len(gbrView) != 2 {
		t.Fatalf("GBR view size = %d, want 2 (tagged GBR + untagged)", len(gbrView))
	}
	for _, s := range gbrView {
		if s == gsr {
			t.Fatalf("GSR-tagged species leaked into GBR view")
		}
	}

	if got := len(cs.FilterSpecies(all, types.FilterAll)); got != 3 {
		t.Fatalf("All view size = %d, want 3", got)
	}
}
