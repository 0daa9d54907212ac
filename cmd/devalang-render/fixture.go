package main

import (
	"github.com/devalang/core/internal/langtypes"
	"github.com/devalang/core/internal/statement"
)

// fixtureProgram is a small built-in statement tree exercising tempo,
// Interval-driven cursor advancement and a four-iteration note loop,
// used by the demo subcommand.
func fixtureProgram() []statement.Statement {
	return []statement.Statement{
		{Kind: statement.KindTempo, Value: langtypes.NumberOf(128)},
		{
			Kind:     statement.KindLoop,
			Count:    langtypes.NumberOf(4),
			Interval: langtypes.BeatFractionDuration(1, 4),
			Children: []statement.Statement{
				{
					Kind:  statement.KindArrowCall,
					Value: langtypes.NumberOf(60),
					ArrowCalls: []statement.ArrowCall{
						{Method: "gain", Args: []langtypes.Value{langtypes.NumberOf(0.9)}},
					},
				},
			},
		},
	}
}
