package advisor

import (
	"context"
	"time"

	"github.com/clocksmith/benzo/internal/a2a"
	"go.uber.org/zap"
)

var _ a2a.Handler = (*Agent)(nil)

// Agent serves any Advisor as an A2A agent. Each message/send is answered
// synchronously with a completed task whose single artifact holds the
// decision as JSON data, or a failed task carrying the error text.
type Agent struct {
	adv    Advisor
	card   a2a.AgentCard
	logger *zap.Logger
	server *a2a.Server
}

// NewAgent wraps adv. version is reported on the agent card.
func NewAgent(adv Advisor, version string, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Agent{
		adv:    adv,
		logger: logger,
		card: a2a.AgentCard{
			Name:               "benzo-advisor",
			Description:        "Chooses the next action while walking a task graph.",
			Version:            version,
			DefaultInputModes:  []string{"text/plain"},
			DefaultOutputModes: []string{"application/json"},
			Skills: []a2a.AgentSkill{{
				ID:          "advise",
				Name:        "Advise",
				Description: "Returns proceed, add_task, re-evaluate or trigger_subgraph for a task prompt.",
				Tags:        []string{"planning", "graph"},
			}},
		},
	}
	a.server = a2a.NewServer(a.card, a)
	return a
}

// Card returns the agent card.
func (a *Agent) Card() a2a.AgentCard {
	return a.card
}

// Server returns the HTTP server exposing the agent.
func (a *Agent) Server() *a2a.Server {
	return a.server
}

// HandleSendMessage consults the advisor with the message text.
func (a *Agent) HandleSendMessage(ctx context.Context, req a2a.SendMessageRequest) (*a2a.Task, error) {
	task := &a2a.Task{
		ID:        a2a.NewTaskID(),
		ContextID: req.Message.ContextID,
		History:   []a2a.Message{req.Message},
	}

	d, err := a.adv.Advise(ctx, req.Message.Text())
	if err != nil {
		a.logger.Warn("advise failed", zap.String("taskId", task.ID), zap.Error(err))
		msg := a2a.NewMessage(a2a.RoleAgent, a2a.TextPart(err.Error()))
		task.Status = a2a.TaskStatus{State: a2a.TaskStateFailed, Message: &msg, Timestamp: time.Now().UTC()}
		return task, nil
	}

	part, err := a2a.DataPart(d)
	if err != nil {
		return nil, err
	}
	task.Artifacts = []a2a.Artifact{{ArtifactID: a2a.NewTaskID(), Name: "decision", Parts: []a2a.Part{part}}}
	task.Status = a2a.TaskStatus{State: a2a.TaskStateCompleted, Timestamp: time.Now().UTC()}
	a.logger.Debug("advised", zap.String("taskId", task.ID), zap.String("action", string(d.Action)))
	return task, nil
}
