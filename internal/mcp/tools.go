package mcp

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/liftlog/internal/workout"
)

// --- Tool definitions ---

var toolGetSessionState = mcp.NewTool("get_session_state",
	mcp.WithDescription("Get the active workout session: elapsed seconds, pause state, rest countdown, the current set and progress per exercise. Returns active=false when no session is running."),
)

var toolPauseSession = mcp.NewTool("pause_session",
	mcp.WithDescription("Pause the session clock. Any rest in progress ends. Pausing an already paused session does nothing."),
)

var toolResumeSession = mcp.NewTool("resume_session",
	mcp.WithDescription("Resume a paused session. Elapsed time continues from where it was paused."),
)

var toolCompleteSet = mcp.NewTool("complete_set",
	mcp.WithDescription("Mark a set as completed. Completing a working set starts its rest timer."),
	mcp.WithString("set_id", mcp.Required(), mcp.Description("Set ID (UUID), e.g. current_set.id from get_session_state")),
)

var toolSelectExercise = mcp.NewTool("select_exercise",
	mcp.WithDescription("Pin an exercise so its sets are offered next, overriding the automatic order. An empty or unknown group_key returns to automatic selection."),
	mcp.WithString("group_key", mcp.Description("Exercise group key from the exercises list of get_session_state")),
)

var toolSkipRest = mcp.NewTool("skip_rest",
	mcp.WithDescription("End the current rest period early."),
)

// --- Tool handlers ---

func (h *handlers) getSessionState(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.ctrl.State(ctx)
	return h.stateResult("get_session_state", st, err)
}

func (h *handlers) pauseSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.ctrl.Pause(ctx)
	return h.stateResult("pause_session", st, err)
}

func (h *handlers) resumeSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.ctrl.Resume(ctx)
	return h.stateResult("resume_session", st, err)
}

func (h *handlers) completeSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("set_id")
	if err != nil {
		return mcp.NewToolResultError("set_id parameter is required"), nil
	}
	setID, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError("invalid set_id: " + err.Error()), nil
	}

	st, err := h.ctrl.CompleteSet(ctx, setID)
	return h.stateResult("complete_set", st, err)
}

func (h *handlers) selectExercise(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.ctrl.SelectExercise(ctx, req.GetString("group_key", ""))
	return h.stateResult("select_exercise", st, err)
}

func (h *handlers) skipRest(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.ctrl.SkipRest(ctx)
	return h.stateResult("skip_rest", st, err)
}

// stateResult renders st, or err as a tool error. Runtime precondition
// failures are expected and not logged.
func (h *handlers) stateResult(tool string, st workout.State, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		switch {
		case errors.Is(err, workout.ErrNoActiveSession):
			return mcp.NewToolResultError("no active session"), nil
		case errors.Is(err, workout.ErrSetNotFound):
			return mcp.NewToolResultError("set not found in the active session"), nil
		}
		h.log.Error("mcp "+tool, "error", err)
		return mcp.NewToolResultError(tool + " failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(st)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
