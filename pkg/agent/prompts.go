package agent

import (
	"fmt"
	"strings"

	"github.com/entrhq/webpilot/pkg/types"
)

// DefaultSystemPrompt steers the model through the browser tools.
const DefaultSystemPrompt = `You are a web browsing assistant. You operate a real remote browser through tools.

Working with sessions:
- Before using any browser tool, call createSession once and reuse the returned session ID for every later call.
- Use createSessionAdvanced only when the user asks for a specific region, viewport, proxy or similar option.
- Call closeStagehand when the user is done with the browser.

Choosing tools:
- Use navigateTo when the user names a site or URL. Use googleSearch when the user asks to search or find something.
- Use stagehandAct for clicks, typing and key presses, one action per call.
- Use stagehandExtract to read specific information from the current page, and getPageContent to read a whole article.
- Before anything irreversible, such as a purchase, a form submission or sending a message, call askForConfirmation and wait for the answer.

Tool results are JSON objects with toolName, content and dataCollected. When dataCollected is false, read the content, adjust and try again or explain the problem to the user.`

// buildMessages prepends the system prompt to the conversation history.
// A system message already at the head of history replaces the default.
func buildMessages(systemPrompt string, history []*types.Message) []*types.Message {
	messages := make([]*types.Message, 0, len(history)+1)
	if len(history) == 0 || history[0].Role != types.RoleSystem {
		messages = append(messages, types.NewSystemMessage(systemPrompt))
	}
	return append(messages, history...)
}

// skippedCallMessage answers a tool call that was not run because an earlier
// call in the same step handed control back to the user.
func skippedCallMessage(name string) string {
	return fmt.Sprintf(`{"toolName":%q,"content":"Not run: waiting for the user's confirmation.","dataCollected":false}`, name)
}

// repeatedFailureMessage is reported when the model keeps making the same
// failing call.
func repeatedFailureMessage(failures []string) string {
	return fmt.Sprintf("stopping after %d identical tool failures: %s", len(failures), strings.TrimSpace(failures[0]))
}
