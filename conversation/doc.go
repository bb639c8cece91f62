// Package conversation orchestrates a tool-using exchange with a chat model.
//
// A Session owns a Transcript that starts with a system and a user turn.
// Run asks the model for the next assistant turn; when that turn requests
// tools, each call is executed in order and answered with a correlated tool
// turn before the model is asked again. The exchange ends when the model
// replies without tool calls.
//
//	session, err := conversation.NewSession(chatModel,
//	    conversation.DefaultSystemPrompt(retrieval.ToolName),
//	    "Who says 'The rest is silence'?",
//	    []conversation.Tool{tool},
//	    conversation.WithMaxToolRounds(3),
//	)
//	transcript, err := session.Run(ctx)
//
// The number of tool rounds per Run is bounded; a model that keeps calling
// tools ends the run with ErrLoopLimitExceeded. Calls to undeclared tools are
// answered with an error result unless WithStrictTools is set.
package conversation
