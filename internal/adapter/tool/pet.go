package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"wildrose/internal/domain"
)

// Energy deltas applied by the pet capabilities.
const (
	energyRush = -0.1
	energyRest = 0.05
	energyRun  = -0.15
)

// maxSayLength bounds a single chat line posted by the say tool.
const maxSayLength = 500

var sayParameters = json.RawMessage(`{
	"type": "object",
	"properties": {"message": {"type": "string", "description": "Message to send"}},
	"required": ["message"]
}`)

// PetTools returns the pet capability set in catalog order. Each tool
// drives actor, updates vitals and, for say, posts to chat as name.
func PetTools(actor domain.Actor, vitals *domain.Vitals, chat domain.ChatLog, name string) []domain.Tool {
	return []domain.Tool{
		NewFuncTool("move_right", "Move the cat to the right with rush animation", nil,
			func(context.Context, domain.Arguments) (*domain.ToolResult, error) {
				actor.SetRushing()
				vitals.AdjustEnergy(energyRush)
				return TextResult("rushing"), nil
			}),
		NewFuncTool("idle", "Make the cat return to idle/resting state", nil,
			func(context.Context, domain.Arguments) (*domain.ToolResult, error) {
				actor.SetIdle()
				vitals.AdjustEnergy(energyRest)
				return TextResult("idle"), nil
			}),
		NewFuncTool("purr", "Make the cat purr contentedly", nil,
			func(context.Context, domain.Arguments) (*domain.ToolResult, error) {
				if err := actor.Vocalize(domain.VocalPurr); err != nil {
					return nil, err
				}
				vitals.SetMood(domain.MoodHappy)
				return TextResult("purring"), nil
			}),
		NewFuncTool("meow", "Make the cat meow", nil,
			func(context.Context, domain.Arguments) (*domain.ToolResult, error) {
				if err := actor.Vocalize(domain.VocalMeow); err != nil {
					return nil, err
				}
				return TextResult("meowed"), nil
			}),
		NewFuncTool("run", "Make the cat run in place", nil,
			func(context.Context, domain.Arguments) (*domain.ToolResult, error) {
				actor.SetRunning()
				vitals.AdjustEnergy(energyRun)
				return TextResult("running"), nil
			}),
		NewFuncTool("say", "Send a message to the user", sayParameters,
			func(_ context.Context, args domain.Arguments) (*domain.ToolResult, error) {
				msg := args.String("message")
				if err := ValidateAll(
					RequireField("message", msg),
					ValidateMaxLength("message", msg, maxSayLength),
				); err != nil {
					return nil, err
				}
				chat.Post(fmt.Sprintf("%s: %s", name, msg))
				return TextResult("said"), nil
			}),
	}
}
