package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/clocksmith/benzo/internal/graph"
	"github.com/go-playground/validator/v10"
)

// Command names a step operation.
type Command string

const (
	CmdReset                    Command = "reset"
	CmdAddNode                  Command = "add_node"
	CmdRemoveNode               Command = "remove_node"
	CmdConnectNodes             Command = "connect_nodes"
	CmdSelectPath               Command = "select_path"
	CmdCopyMoveToFocus          Command = "copy_move_to_focus"
	CmdStraightenPath           Command = "straighten_path"
	CmdCompressPath             Command = "compress_path"
	CmdAddCompressedPathToGraph Command = "add_compressed_path_to_graph"
	CmdAddCircularRings         Command = "add_circular_rings"
	CmdAddTriangularGrid        Command = "add_triangular_grid"
	CmdCreateSubgraph           Command = "create_subgraph"
	CmdMergeSubgraph            Command = "merge_subgraph"
	CmdMessageOnly              Command = "message_only"
)

// Commands lists every recognized command.
var Commands = []Command{
	CmdReset, CmdAddNode, CmdRemoveNode, CmdConnectNodes, CmdSelectPath,
	CmdCopyMoveToFocus, CmdStraightenPath, CmdCompressPath, CmdAddCompressedPathToGraph,
	CmdAddCircularRings, CmdAddTriangularGrid, CmdCreateSubgraph, CmdMergeSubgraph,
	CmdMessageOnly,
}

// Known reports whether c is a recognized command.
func (c Command) Known() bool {
	for _, k := range Commands {
		if c == k {
			return true
		}
	}
	return false
}

// --- Params ---

// AddNodeParams also accepts the short form {id, type, data}.
type AddNodeParams struct {
	NodeID string         `json:"nodeId" validate:"required"`
	Data   graph.NodeData `json:"data" validate:"-"`
	Kind   graph.NodeKind `json:"kind"`

	ID   string         `json:"id,omitempty" validate:"-"`
	Type graph.NodeKind `json:"type,omitempty" validate:"-"`
}

func (p *AddNodeParams) normalize() {
	if p.NodeID == "" {
		p.NodeID = p.ID
	}
	if p.Kind == "" {
		p.Kind = p.Type
	}
}

type RemoveNodeParams struct {
	NodeID string `json:"nodeId"`
}

type ConnectNodesParams struct {
	Node1    string         `json:"node1" validate:"required"`
	Node2    string         `json:"node2" validate:"required"`
	Weight   *float64       `json:"weight" validate:"omitempty,gte=0"`
	EdgeType graph.EdgeType `json:"edgeType"`
}

// SelectPathParams also accepts a bare array of ids.
type SelectPathParams struct {
	NodeIDs []string `json:"nodeIds" validate:"required"`
}

type CompressedPathParams struct {
	StartNodeID string `json:"startNodeId"`
	EndNodeID   string `json:"endNodeId"`
}

// RingsParams also accepts a bare array of sizes.
type RingsParams struct {
	RingSizes []int `json:"ringSizes" validate:"required,min=1,dive,gt=0,lte=10000"`
}

// GridParams also accepts a bare number.
type GridParams struct {
	NumRings int `json:"numRings" validate:"gt=0,lte=58"`
}

// CreateSubgraphParams accepts subGraphId as the goal.
type CreateSubgraphParams struct {
	ParentNodeID string `json:"parentNodeId" validate:"required"`
	Goal         string `json:"goal"`
	SubgraphID   string `json:"subGraphId"`
}

type MergeSubgraphParams struct {
	ParentNodeID  string              `json:"parentNodeId" validate:"required"`
	MergeStrategy graph.MergeStrategy `json:"mergeStrategy" validate:"omitempty,oneof=add_nodes update_parent compress"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeParams unmarshals raw into p (a null or empty raw leaves p zero) and
// validates it. Failures wrap ErrInvalidParams.
func decodeParams(cmd Command, raw json.RawMessage, p any) error {
	if !isNull(raw) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		if err := dec.Decode(p); err != nil {
			return fmt.Errorf("%s: %w: %v", cmd, ErrInvalidParams, err)
		}
	}
	if n, ok := p.(interface{ normalize() }); ok {
		n.normalize()
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%s: %w: %v", cmd, ErrInvalidParams, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", e.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s needs at least %s entries", e.Field(), e.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", e.Namespace(), e.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return strings.Join(msgs, "; ")
}

// shorthand rewrites a bare array or number into the object form.
func shorthand(raw json.RawMessage, key string) json.RawMessage {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || t[0] == '{' || bytes.Equal(t, []byte("null")) {
		return raw
	}
	out, err := json.Marshal(map[string]json.RawMessage{key: t})
	if err != nil {
		return raw
	}
	return out
}

// Apply executes one step against store. Errors report why the step was
// skipped; the store is left consistent either way. The step message is not
// handled here, except for message_only which forwards it to the store sink.
func Apply(ctx context.Context, store *graph.Store, st Step) error {
	switch st.Command {
	case "":
		return fmt.Errorf("step %q: %w", st.Key, ErrMissingCommand)

	case CmdReset:
		store.Reset()

	case CmdAddNode:
		var p AddNodeParams
		if err := decodeParams(st.Command, st.Params, &p); err != nil {
			return err
		}
		store.AddNode(p.NodeID, p.Data, p.Kind)

	case CmdRemoveNode:
		var p RemoveNodeParams
		if err := decodeParams(st.Command, st.Params, &p); err != nil {
			return err
		}
		if p.NodeID == "" {
			if _, ok := store.RemoveNode(); !ok {
				return fmt.Errorf("%s: store is empty: %w", st.Command, graph.ErrNodeNotFound)
			}
			return nil
		}
		if !store.RemoveNodeByID(p.NodeID) {
			return fmt.Errorf("%s %q: %w", st.Command, p.NodeID, graph.ErrNodeNotFound)
		}

	case CmdConnectNodes:
		var p ConnectNodesParams
		if err := decodeParams(st.Command, st.Params, &p); err != nil {
			return err
		}
		opts := []graph.EdgeOption{graph.WithEdgeType(p.EdgeType)}
		if p.Weight != nil {
			opts = append(opts, graph.WithWeight(*p.Weight))
		}
		if !store.AddEdge(p.Node1, p.Node2, opts...) {
			return fmt.Errorf("%s %s->%s: %w", st.Command, p.Node1, p.Node2, graph.ErrNodeNotFound)
		}

	case CmdSelectPath:
		var p SelectPathParams
		if err := decodeParams(st.Command, shorthand(st.Params, "nodeIds"), &p); err != nil {
			return err
		}
		store.SelectPath(p.NodeIDs)

	case CmdCopyMoveToFocus:
		store.CopyMoveToFocus()

	case CmdStraightenPath:
		store.StraightenPath()

	case CmdCompressPath:
		store.CompressPath()

	case CmdAddCompressedPathToGraph:
		var p CompressedPathParams
		if err := decodeParams(st.Command, st.Params, &p); err != nil {
			return err
		}
		res, err := store.AddCompressedPathToGraph(ctx, graph.CompressOptions{
			StartNodeID: p.StartNodeID,
			EndNodeID:   p.EndNodeID,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", st.Command, err)
		}
		if res == nil {
			return fmt.Errorf("%s: nothing to compress: %w", st.Command, graph.ErrNodeNotFound)
		}

	case CmdAddCircularRings:
		var p RingsParams
		if err := decodeParams(st.Command, shorthand(st.Params, "ringSizes"), &p); err != nil {
			return err
		}
		if _, err := store.AddCircularRings(p.RingSizes); err != nil {
			return fmt.Errorf("%s: %w: %w", st.Command, ErrInvalidParams, err)
		}

	case CmdAddTriangularGrid:
		var p GridParams
		if err := decodeParams(st.Command, shorthand(st.Params, "numRings"), &p); err != nil {
			return err
		}
		if _, err := store.AddTriangularGrid(p.NumRings); err != nil {
			return fmt.Errorf("%s: %w: %w", st.Command, ErrInvalidParams, err)
		}

	case CmdCreateSubgraph:
		var p CreateSubgraphParams
		if err := decodeParams(st.Command, st.Params, &p); err != nil {
			return err
		}
		goal := p.Goal
		if goal == "" {
			goal = p.SubgraphID
		}
		if _, err := store.CreateSubgraph(p.ParentNodeID, goal); err != nil {
			return fmt.Errorf("%s: %w", st.Command, err)
		}

	case CmdMergeSubgraph:
		var p MergeSubgraphParams
		if err := decodeParams(st.Command, st.Params, &p); err != nil {
			return err
		}
		if err := store.MergeSubgraph(p.ParentNodeID, p.MergeStrategy); err != nil {
			return fmt.Errorf("%s: %w", st.Command, err)
		}

	case CmdMessageOnly:
		store.Message(st.Message)

	default:
		return fmt.Errorf("step %q: %w: %s", st.Key, ErrUnknownCommand, st.Command)
	}
	return nil
}
