package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/songzhibin97/supercircle/internal/models"
)

const (
	ToolResolveChallenge = "resolve_challenge"
	ToolDescription      = "Resolve a challenge by giving the winner"

	ArgCircleIDDescription = "The ID of the challenge to resolve"
	ArgWinnerDescription   = "The winner of the challenge"

	// DefaultMaxRounds bounds the model/tool round trips per circle.
	DefaultMaxRounds = 3
)

// WinnerValues are the values the winner argument accepts.
var WinnerValues = []string{"creator", "opponent"}

const SystemInstruction = "You are a judge assistant. You are responsible for judging the challenges. " +
	"You will first research the challenge and after confirming the challenge is valid and you have enough information, " +
	"then resolve the challenge."

// Prompt renders the judging task for circle.
func Prompt(circle *models.Circle) string {
	var b strings.Builder
	b.WriteString("You are a judge assistant. You are responsible for judging the challenges.\n")
	fmt.Fprintf(&b, "The challenge is: %s\n", circle.Description)
	fmt.Fprintf(&b, "The challenge ID is: %d\n", circle.ID)
	fmt.Fprintf(&b, "Creator: %s\n", circle.Creator)
	if circle.HasOpponent() {
		fmt.Fprintf(&b, "Opponent: %s\n", *circle.Opponent)
	}
	fmt.Fprintf(&b, "Deadline: %s\n", time.Unix(circle.Deadline, 0).UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Prize pool: %g APT\n", circle.PrizePool)
	fmt.Fprintf(&b, "Call %s with circle_id %d and the winner (creator or opponent) once you have decided.", ToolResolveChallenge, circle.ID)
	return b.String()
}

// ParseResolveArgs decodes and validates resolve_challenge arguments.
func ParseResolveArgs(raw []byte) (ResolveArgs, error) {
	var args ResolveArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return ResolveArgs{}, fmt.Errorf("invalid %s arguments: %w", ToolResolveChallenge, err)
	}

	args.Winner = strings.ToLower(strings.TrimSpace(args.Winner))
	switch args.Winner {
	case "creator", "opponent":
	default:
		return ResolveArgs{}, fmt.Errorf("invalid winner %q: must be creator or opponent", args.Winner)
	}
	return args, nil
}

// Dispatch runs one tool call for circle and always yields a result the
// model can read. Calls naming another circle are refused.
func Dispatch(ctx context.Context, circle *models.Circle, exec ToolExecutor, name string, rawArgs []byte) *ToolResult {
	if name != ToolResolveChallenge {
		return failedResult(fmt.Errorf("unknown tool %q", name))
	}

	args, err := ParseResolveArgs(rawArgs)
	if err != nil {
		return failedResult(err)
	}
	if args.CircleID != circle.ID {
		return failedResult(fmt.Errorf("circle_id %d does not match the challenge under judgement (%d)", args.CircleID, circle.ID))
	}

	result, err := exec.ResolveChallenge(ctx, args)
	if err != nil {
		return failedResult(err)
	}
	return result
}

func failedResult(err error) *ToolResult {
	return &ToolResult{
		Data: ToolResultData{
			Result: "Failed to resolve challenge",
			Error:  err.Error(),
		},
	}
}

// Record folds one tool result into the verdict.
func (v *Verdict) Record(result *ToolResult) {
	v.ToolCalls++
	if result == nil || !result.Successful {
		return
	}
	v.Resolved = true
	v.Winner = result.Data.Winner
	v.WinnerAddress = result.Data.WinnerAddress
	v.TransactionHash = result.Data.TransactionHash
}

// NewVerdict starts an undecided verdict for circle.
func NewVerdict(circle *models.Circle, provider, model string) *Verdict {
	return &Verdict{
		CircleID:  circle.ID,
		Provider:  provider,
		Model:     model,
		DecidedAt: time.Now(),
	}
}

// ResultMap renders result as a generic map for providers that take one.
func ResultMap(result *ToolResult) map[string]any {
	raw, err := json.Marshal(result)
	if err != nil {
		return map[string]any{"successful": false, "error": err.Error()}
	}
	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"successful": false, "error": err.Error()}
	}
	return out
}
