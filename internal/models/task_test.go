package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask_Defaults(t *testing.T) {
	task := NewTask("Research pain points", "dig into transcripts", AgentResearch, 1)

	require.NotEmpty(t, task.ID)
	assert.Equal(t, TaskStatusProposed, task.Status)
	assert.Equal(t, AgentResearch, task.Agent)
	assert.Equal(t, 1, task.Priority)
	assert.False(t, task.CreatedAt.IsZero())
}

func TestNewTask_InvalidInputsNormalized(t *testing.T) {
	task := NewTask("x", "", "", 99)
	assert.Equal(t, AgentOrchestrator, task.Agent)
	assert.Equal(t, 3, task.Priority)

	task = NewTask("x", "", AgentTicket, 0)
	assert.Equal(t, 3, task.Priority)
}

func TestTask_Transition_ForwardOnly(t *testing.T) {
	tests := []struct {
		name string
		from TaskStatus
		to   TaskStatus
		ok   bool
	}{
		{"proposed to confirmed", TaskStatusProposed, TaskStatusConfirmed, true},
		{"proposed to rejected", TaskStatusProposed, TaskStatusRejected, true},
		{"proposed to in_progress", TaskStatusProposed, TaskStatusInProgress, false},
		{"proposed to completed", TaskStatusProposed, TaskStatusCompleted, false},
		{"confirmed to in_progress", TaskStatusConfirmed, TaskStatusInProgress, true},
		{"confirmed to rejected", TaskStatusConfirmed, TaskStatusRejected, false},
		{"confirmed to proposed", TaskStatusConfirmed, TaskStatusProposed, false},
		{"in_progress to completed", TaskStatusInProgress, TaskStatusCompleted, true},
		{"in_progress to confirmed", TaskStatusInProgress, TaskStatusConfirmed, false},
		{"completed is terminal", TaskStatusCompleted, TaskStatusInProgress, false},
		{"rejected is terminal", TaskStatusRejected, TaskStatusConfirmed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{Status: tt.from}
			assert.Equal(t, tt.ok, task.Transition(tt.to))
			if tt.ok {
				assert.Equal(t, tt.to, task.Status)
			} else {
				assert.Equal(t, tt.from, task.Status, "status must not move on an illegal transition")
			}
		})
	}
}

func TestSession_TaskQueries(t *testing.T) {
	sess := NewSession("p1", "u1", nil)
	sess.Tasks = []*Task{
		NewTask("research", "", AgentResearch, 1),
		NewTask("document", "", AgentDocument, 2),
	}
	sess.Tasks[0].Transition(TaskStatusConfirmed)

	assert.True(t, sess.HasTask(TaskStatusConfirmed, AgentResearch))
	assert.False(t, sess.HasTask(TaskStatusConfirmed, AgentDocument))

	got := sess.TasksByAgent(TaskStatusProposed, AgentDocument, AgentTicket)
	require.Len(t, got, 1)
	assert.Equal(t, "document", got[0].Title)
}

func TestPhase_Valid(t *testing.T) {
	for _, p := range []Phase{PhaseIntake, PhaseWaiting, PhasePlanning, PhaseResearching,
		PhaseGenerating, PhaseReviewing, PhaseTicketing, PhaseComplete} {
		assert.True(t, p.Valid(), string(p))
	}
	assert.False(t, Phase("paused").Valid())
}

func TestRequirementsDoc_Markdown(t *testing.T) {
	doc := &RequirementsDoc{
		Title:            "Onboarding Overhaul",
		ProblemStatement: "Users churn in week one.",
		UserStories:      []string{"As a new user, I want a guided setup."},
		KPIs:             []KPI{{Metric: "activation", Target: "60%", MeasurementMethod: "weekly cohort"}},
	}
	md := doc.Markdown()
	assert.Contains(t, md, "# Onboarding Overhaul")
	assert.Contains(t, md, "## Problem")
	assert.Contains(t, md, "guided setup")
	assert.Contains(t, md, "activation: 60%")
}
