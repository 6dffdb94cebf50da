package provider

import "encoding/json"

// testMessages returns a sample conversation.
func testMessages() []Message {
	return []Message{
		{Role: "user", Content: "I have had a headache for two days."},
		{Role: "assistant", Content: "I'm sorry to hear that. Have you had a fever as well?"},
		{Role: "user", Content: "No fever, just the headache."},
	}
}

func singleUserMessage(content string) []Message {
	return []Message{{Role: "user", Content: content}}
}

// sseBody renders deltas as a Groq/OpenAI style event stream ending in
// `data: [DONE]`.
func sseBody(deltas ...string) string {
	body := ""
	for _, d := range deltas {
		q, _ := json.Marshal(d)
		body += `data: {"choices":[{"index":0,"delta":{"content":` + string(q) + `}}]}` + "\n\n"
	}
	return body + "data: [DONE]\n\n"
}
