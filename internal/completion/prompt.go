package completion

import "strings"

const taskInstruction = `You are transcribing a screenshot of a camera application menu.
Read every visible label, value and description and describe the menu as structured data.`

const outputContract = `Respond with exactly one JSON object and nothing else. Use this shape:
{
  "menu_name": "name of the menu or setting shown",
  "description": "what the menu controls, in plain words",
  "modes": ["shooting modes in which this menu is available"],
  "condition": {"setting": "value that must hold for the menu to be enabled"},
  "items": [
    {"label": "item label as shown", "value": "item value or state", "description": "what selecting it does"}
  ],
  "hint": "hint text shown on screen, or an empty string",
  "note": "anything notable that does not fit the fields above, or an empty string"
}
Do not wrap the JSON in markdown fences. Do not write any prose before or after the JSON.`

// BuildPrompt assembles the transcription prompt. The caller's message is
// inserted verbatim between the task instruction and the output contract.
func BuildPrompt(userMessage string) string {
	var b strings.Builder
	b.WriteString(taskInstruction)
	b.WriteString("\n\nAdditional context from the user:\n")
	b.WriteString(userMessage)
	b.WriteString("\n\n")
	b.WriteString(outputContract)
	return b.String()
}
