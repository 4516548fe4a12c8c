// Package taxonomy defines the static category/flow catalog used to route
// customer requests, and the pure resolution functions over it. Resolution
// never performs I/O; the catalog is fixed at construction time.
package taxonomy

// FlowStep is a single directive within a flow. Capability names the executor
// able to perform it; Instructions describe what the executor should do and
// when the step counts as complete. Branch, when set, overrides sequential
// advancement with an explicit next step index once the step completes.
type FlowStep struct {
	Capability   string `yaml:"capability" json:"capability"`
	Instructions string `yaml:"instructions" json:"instructions"`
	Branch       *int   `yaml:"branch,omitempty" json:"branch,omitempty"`
}

// Flow is an ordered list of steps resolving one kind of request.
type Flow struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description" json:"description"`
	Steps       []FlowStep `yaml:"steps" json:"steps"`
}

// Category groups the flows applicable to one class of customer request.
type Category struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Flows       []Flow `yaml:"flows" json:"flows"`
}

// Resolver answers category and flow lookups against a fixed catalog.
type Resolver struct {
	categories []Category
	byID       map[string]Category
}

// NewResolver builds a resolver over the given categories. Declaration order
// of categories and flows is preserved.
func NewResolver(categories []Category) *Resolver {
	byID := make(map[string]Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	return &Resolver{categories: categories, byID: byID}
}

// Categories returns the full catalog in declaration order.
func (r *Resolver) Categories() []Category {
	out := make([]Category, len(r.categories))
	copy(out, r.categories)
	return out
}

// Flows returns the ordered flows of a category. An unknown category yields
// an empty list, never an error: callers treat it as "no matching flow".
func (r *Resolver) Flows(categoryID string) []Flow {
	c, ok := r.byID[categoryID]
	if !ok {
		return nil
	}
	out := make([]Flow, len(c.Flows))
	copy(out, c.Flows)
	return out
}

// Flow returns a single flow of a category by id.
func (r *Resolver) Flow(categoryID, flowID string) (Flow, bool) {
	for _, f := range r.Flows(categoryID) {
		if f.ID == flowID {
			return f, true
		}
	}
	return Flow{}, false
}

// NextStep returns the step at index idx of the flow, or false when the flow
// is exhausted or idx is out of range.
func NextStep(flow Flow, idx int) (FlowStep, bool) {
	if idx < 0 || idx >= len(flow.Steps) {
		return FlowStep{}, false
	}
	return flow.Steps[idx], true
}
