package providers

// StageRoute overrides primary/fallback/model for a single stage.
// Empty fields inherit from the routing table's globals.
type StageRoute struct {
	Primary  string `json:"primary,omitempty"`
	Fallback string `json:"fallback,omitempty"`
	Model    string `json:"model,omitempty"`
}

// RoutingTable maps stages to providers and models. It is process-wide,
// read-only after load, and shared by all stage workers without
// locking.
type RoutingTable struct {
	// Primary is the default provider name for every stage.
	Primary string `json:"primary"`

	// Fallback is tried when the primary exhausts its retry budget.
	Fallback string `json:"fallback,omitempty"`

	// Models maps a stage to its model id.
	Models map[Stage]string `json:"models,omitempty"`

	// DefaultModel is used when a stage has no entry in Models.
	DefaultModel string `json:"default_model,omitempty"`

	// Overrides replaces primary/fallback/model per individual stage.
	Overrides map[Stage]StageRoute `json:"overrides,omitempty"`
}

// route is a fully resolved stage route: the ordered candidate provider
// list and the model id to stamp on the response.
type route struct {
	candidates []string
	model      string
}

// routeFor resolves a stage against the table: override > global for
// providers, override model > per-stage model > default model.
func (t RoutingTable) routeFor(stage Stage) route {
	primary := t.Primary
	fallback := t.Fallback
	model := t.Models[stage]
	if model == "" {
		model = t.DefaultModel
	}

	if ov, ok := t.Overrides[stage]; ok {
		if ov.Primary != "" {
			primary = ov.Primary
		}
		if ov.Fallback != "" {
			fallback = ov.Fallback
		}
		if ov.Model != "" {
			model = ov.Model
		}
	}

	var candidates []string
	if primary != "" {
		candidates = append(candidates, primary)
	}
	if fallback != "" && fallback != primary {
		candidates = append(candidates, fallback)
	}

	return route{candidates: candidates, model: model}
}
