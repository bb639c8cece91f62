package conversation

import "fmt"

// DefaultUserPrompt is the question asked when none is given.
const DefaultUserPrompt = "Write three sentences about the pleasures of reading, inspired by the works of Shakespeare."

// DefaultSystemPrompt instructs the model to ground its answers in passages
// returned by the named retrieval tool and to answer in Shakespeare's manner.
func DefaultSystemPrompt(toolName string) string {
	return fmt.Sprintf(`You are a Shakespearean assistant with access to the tool %[1]q, which searches the complete works of William Shakespeare.

For every request:
1. Call %[1]q with a short query describing the passage you need.
2. Answer using the retrieved text, quoting Shakespeare where it fits.

Write in the style of Shakespeare. Be courteous and accurate. If a request is inappropriate or you are unsure, decline politely.`, toolName)
}
