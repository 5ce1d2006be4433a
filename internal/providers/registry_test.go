package providers

import (
	"testing"
)

func TestNewRegistryFromConfig(t *testing.T) {
	t.Run("registers enabled providers only", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Text: map[string]ProviderConfig{
				"on":  {Type: "mock", Enabled: true},
				"off": {Type: "mock", Enabled: false},
			},
			Image: map[string]ProviderConfig{
				"img": {Type: "mock", Enabled: true},
			},
		})

		if _, err := r.GetText("on"); err != nil {
			t.Errorf("GetText(on) error = %v", err)
		}
		if _, err := r.GetText("off"); err == nil {
			t.Error("GetText(off) error = nil, want error for disabled provider")
		}
		if _, err := r.GetImage("img"); err != nil {
			t.Errorf("GetImage(img) error = %v", err)
		}
	})

	t.Run("skips unknown provider types", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Text: map[string]ProviderConfig{
				"weird": {Type: "does-not-exist", Enabled: true},
			},
		})
		if names := r.ListText(); len(names) != 0 {
			t.Errorf("ListText() = %v, want empty", names)
		}
	})

	t.Run("builds real provider types", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			Text: map[string]ProviderConfig{
				"openai": {Type: "openai", APIKey: "k", Enabled: true},
				"gemini": {Type: "gemini", APIKey: "k", Enabled: true},
			},
		})
		for _, name := range []string{"openai", "gemini"} {
			p, err := r.GetText(name)
			if err != nil {
				t.Fatalf("GetText(%s) error = %v", name, err)
			}
			if p.Name() != name {
				t.Errorf("Name() = %q, want %q", p.Name(), name)
			}
		}
	})
}

func TestRegistryReload(t *testing.T) {
	r := NewRegistryFromConfig(RegistryConfig{
		Text: map[string]ProviderConfig{
			"old": {Type: "mock", Enabled: true},
		},
		TextRouting: RoutingTable{Primary: "old", DefaultModel: "m"},
	})

	r.Reload(RegistryConfig{
		Text: map[string]ProviderConfig{
			"new": {Type: "mock", Enabled: true},
		},
		TextRouting: RoutingTable{Primary: "new", DefaultModel: "m2"},
	})

	if _, err := r.GetText("old"); err == nil {
		t.Error("GetText(old) error = nil after reload, want error")
	}
	if _, err := r.GetText("new"); err != nil {
		t.Errorf("GetText(new) error = %v", err)
	}

	rt := r.textRoute(StageStoryOutline)
	if len(rt.candidates) != 1 || rt.candidates[0] != "new" {
		t.Errorf("routeFor candidates = %v, want [new]", rt.candidates)
	}
	if rt.model != "m2" {
		t.Errorf("routeFor model = %q, want %q", rt.model, "m2")
	}
}

func TestRoutingTable(t *testing.T) {
	table := RoutingTable{
		Primary:      "a",
		Fallback:     "b",
		DefaultModel: "default",
		Models: map[Stage]string{
			StageSceneBreakdown: "special",
		},
		Overrides: map[Stage]StageRoute{
			StageBriefExtraction: {Primary: "c", Model: "cheap"},
		},
	}

	t.Run("global route", func(t *testing.T) {
		rt := table.routeFor(StageStoryOutline)
		if len(rt.candidates) != 2 || rt.candidates[0] != "a" || rt.candidates[1] != "b" {
			t.Errorf("candidates = %v, want [a b]", rt.candidates)
		}
		if rt.model != "default" {
			t.Errorf("model = %q, want %q", rt.model, "default")
		}
	})

	t.Run("per-stage model", func(t *testing.T) {
		rt := table.routeFor(StageSceneBreakdown)
		if rt.model != "special" {
			t.Errorf("model = %q, want %q", rt.model, "special")
		}
	})

	t.Run("stage override wins", func(t *testing.T) {
		rt := table.routeFor(StageBriefExtraction)
		if rt.candidates[0] != "c" {
			t.Errorf("primary = %q, want %q", rt.candidates[0], "c")
		}
		if rt.model != "cheap" {
			t.Errorf("model = %q, want %q", rt.model, "cheap")
		}
	})

	t.Run("duplicate fallback collapses", func(t *testing.T) {
		dup := RoutingTable{Primary: "x", Fallback: "x", DefaultModel: "m"}
		rt := dup.routeFor(StageStoryOutline)
		if len(rt.candidates) != 1 {
			t.Errorf("candidates = %v, want single entry", rt.candidates)
		}
	})
}
