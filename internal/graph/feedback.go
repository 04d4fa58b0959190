package graph

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// WeightPatch is a per-node adjustment applied by UpdateWeights.
type WeightPatch struct {
	HumanFeedbackRefined *float64 `json:"human_in_loop_feedback_refined,omitempty"`
}

// UpdateWeights applies patches, recomputes the outgoing edge weights of every
// patched node from its targets' data, and clears both path memos.
// Patches for unknown nodes are ignored. A zero refined value is not applied.
func (s *Store) UpdateWeights(patches map[string]WeightPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range patches {
		n, ok := s.nodes[id]
		if !ok {
			continue
		}
		if p.HumanFeedbackRefined != nil && *p.HumanFeedbackRefined != 0 {
			n.data.HumanFeedbackRefined = Float(*p.HumanFeedbackRefined)
		}
		s.reweighLocked(n)
	}
	s.clearMemoLocked()
}

func (s *Store) reweighLocked(n *node) {
	for _, to := range n.order {
		dst, ok := s.nodes[to]
		if !ok {
			continue
		}
		e := n.edges[to]
		e.Weight = CalculateWeight(dst.data)
		n.edges[to] = e
	}
}

func (s *Store) clearMemoLocked() {
	s.memo = make(map[string]*PathResult)
	s.pairMemo = make(map[string]*PathResult)
}

// FeedbackType discriminates Feedback.
type FeedbackType string

const (
	FeedbackRating  FeedbackType = "rating"
	FeedbackBoolean FeedbackType = "boolean"
	FeedbackText    FeedbackType = "text"
)

// Feedback is a human judgement about an executed node. Value is a number for
// ratings, a bool for yes/no questions and a string for free text.
type Feedback struct {
	Type     FeedbackType `json:"type"`
	Scale    string       `json:"scale,omitempty"`
	Question string       `json:"question,omitempty"`
	Value    any          `json:"value"`
}

// Success probabilities assigned by a yes/no "successful" answer.
const (
	SuccessfulProbability   = 0.95
	UnsuccessfulProbability = 0.5
)

// ApplyFeedback folds fb into the node's data, recomputes its outgoing edge
// weights and clears the path memos.
//
// A rating with a scale sets the named attribute. A boolean answer to a
// question mentioning "successful" sets success_probability. Text is logged.
func (s *Store) ApplyFeedback(nodeID string, fb Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[nodeID]
	if !ok {
		return fmt.Errorf("apply feedback to %q: %w", nodeID, ErrNodeNotFound)
	}

	switch {
	case fb.Type == FeedbackRating && fb.Scale != "":
		v, ok := toFloat(fb.Value)
		if !ok {
			return fmt.Errorf("apply feedback to %q: rating value %v is not a number", nodeID, fb.Value)
		}
		n.data.SetNumber(fb.Scale, v)
	case fb.Type == FeedbackBoolean && strings.Contains(fb.Question, "successful"):
		yes, _ := fb.Value.(bool)
		if yes {
			n.data.SuccessProbability = Float(SuccessfulProbability)
		} else {
			n.data.SuccessProbability = Float(UnsuccessfulProbability)
		}
	case fb.Type == FeedbackText:
		s.logger.Info("text feedback received", zap.String("nodeId", nodeID), zap.Any("value", fb.Value))
	}

	s.reweighLocked(n)
	s.clearMemoLocked()
	return nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
