package graph

import (
	"encoding/json"
	"fmt"
)

// JSON field names of the numeric attributes understood by the cost model.
const (
	FieldTimeEstimate         = "time_estimate"
	FieldPainLevel            = "pain_level"
	FieldComplexity           = "complexity"
	FieldHumanFeedbackInitial = "human_in_loop_feedback_initial"
	FieldHumanFeedbackRefined = "human_in_loop_feedback_refined"
	FieldSuccessProbability   = "success_probability"
	FieldX                    = "x"
	FieldY                    = "y"
)

// NodeData is the attribute record carried by a node. Known fields are typed;
// anything else a script stashes on a node is kept verbatim in Extra and
// written back out on marshal.
type NodeData struct {
	Title       string
	Description string
	Name        string

	TimeEstimate         *float64
	PainLevel            *float64
	Complexity           *float64
	HumanFeedbackInitial *float64
	HumanFeedbackRefined *float64
	SuccessProbability   *float64

	PotentialSolutions map[string]NodeData

	X *float64
	Y *float64

	DesignContext map[string]any

	Extra map[string]any
}

// Float returns a pointer to v. Handy for building NodeData literals.
func Float(v float64) *float64 {
	return &v
}

// numberField maps a JSON field name to the typed slot that holds it.
func (d *NodeData) numberField(name string) **float64 {
	switch name {
	case FieldTimeEstimate:
		return &d.TimeEstimate
	case FieldPainLevel:
		return &d.PainLevel
	case FieldComplexity:
		return &d.Complexity
	case FieldHumanFeedbackInitial:
		return &d.HumanFeedbackInitial
	case FieldHumanFeedbackRefined:
		return &d.HumanFeedbackRefined
	case FieldSuccessProbability:
		return &d.SuccessProbability
	case FieldX:
		return &d.X
	case FieldY:
		return &d.Y
	}
	return nil
}

// SetNumber assigns a numeric attribute by its JSON name. Names outside the
// known set are stored in Extra.
func (d *NodeData) SetNumber(name string, v float64) {
	if slot := d.numberField(name); slot != nil {
		*slot = Float(v)
		return
	}
	if d.Extra == nil {
		d.Extra = make(map[string]any)
	}
	d.Extra[name] = v
}

// Number reads a numeric attribute by its JSON name.
func (d NodeData) Number(name string) (float64, bool) {
	if slot := d.numberField(name); slot != nil {
		if *slot == nil {
			return 0, false
		}
		return **slot, true
	}
	v, ok := d.Extra[name].(float64)
	return v, ok
}

// DisplayName returns the title, falling back to name.
func (d NodeData) DisplayName() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// Clone returns a deep copy that shares no maps or pointers with d.
func (d NodeData) Clone() NodeData {
	out := NodeData{
		Title:       d.Title,
		Description: d.Description,
		Name:        d.Name,

		TimeEstimate:         cloneFloat(d.TimeEstimate),
		PainLevel:            cloneFloat(d.PainLevel),
		Complexity:           cloneFloat(d.Complexity),
		HumanFeedbackInitial: cloneFloat(d.HumanFeedbackInitial),
		HumanFeedbackRefined: cloneFloat(d.HumanFeedbackRefined),
		SuccessProbability:   cloneFloat(d.SuccessProbability),

		X: cloneFloat(d.X),
		Y: cloneFloat(d.Y),
	}
	if d.PotentialSolutions != nil {
		out.PotentialSolutions = make(map[string]NodeData, len(d.PotentialSolutions))
		for k, v := range d.PotentialSolutions {
			out.PotentialSolutions[k] = v.Clone()
		}
	}
	if d.DesignContext != nil {
		out.DesignContext = cloneMap(d.DesignContext)
	}
	if d.Extra != nil {
		out.Extra = cloneMap(d.Extra)
	}
	return out
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON flattens known fields and Extra into one object.
func (d NodeData) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(d.Extra)+8)
	for k, v := range d.Extra {
		m[k] = v
	}
	if d.Title != "" {
		m["title"] = d.Title
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Name != "" {
		m["name"] = d.Name
	}
	for _, name := range numberFields {
		if v, ok := d.Number(name); ok {
			m[name] = v
		}
	}
	if d.PotentialSolutions != nil {
		m["potential_solutions"] = d.PotentialSolutions
	}
	if d.DesignContext != nil {
		m["designContext"] = d.DesignContext
	}
	return json.Marshal(m)
}

var numberFields = []string{
	FieldTimeEstimate,
	FieldPainLevel,
	FieldComplexity,
	FieldHumanFeedbackInitial,
	FieldHumanFeedbackRefined,
	FieldSuccessProbability,
	FieldX,
	FieldY,
}

// UnmarshalJSON accepts any object. Known keys populate typed fields and the
// rest land in Extra. A null document leaves d empty.
func (d *NodeData) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("node data: %w", err)
	}
	*d = NodeData{}
	for key, val := range raw {
		var err error
		switch key {
		case "title":
			err = json.Unmarshal(val, &d.Title)
		case "description":
			err = json.Unmarshal(val, &d.Description)
		case "name":
			err = json.Unmarshal(val, &d.Name)
		case "potential_solutions":
			err = json.Unmarshal(val, &d.PotentialSolutions)
		case "designContext":
			err = json.Unmarshal(val, &d.DesignContext)
		default:
			if slot := d.numberField(key); slot != nil {
				err = json.Unmarshal(val, slot)
				break
			}
			var v any
			err = json.Unmarshal(val, &v)
			if d.Extra == nil {
				d.Extra = make(map[string]any)
			}
			d.Extra[key] = v
		}
		if err != nil {
			return fmt.Errorf("node data field %q: %w", key, err)
		}
	}
	return nil
}
