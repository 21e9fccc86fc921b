package config

// BuiltinFeatures returns the default feature registry covering the three
// assistant surfaces under evaluation. Config files may override or extend
// this set; an empty [features] table falls back to these definitions.
func BuiltinFeatures() map[string]FeatureConfig {
	return map[string]FeatureConfig{
		"generate_code": {
			PromptID:     "generate-code",
			Description:  "Generate test automation code from natural language requests",
			SystemPrompt: generateCodeSystemPrompt,
			Criteria: map[string]string{
				"completeness":  "Does the code address all requirements from the prompt?",
				"correctness":   "Is the syntax valid and does it use proper test automation keywords?",
				"readability":   "Is the code well-structured with proper indentation and comments?",
				"functionality": "Would this code execute successfully in the target environment?",
			},
			InputGuidance: []string{
				"web UI interactions (clicking buttons, filling forms, verifying elements)",
				"mobile app testing scenarios (gestures, device rotation, app lifecycle)",
				"API testing flows (REST requests, response validation, chained calls)",
				"data-driven testing (reading test data, parameterized execution)",
				"waits, synchronization, and failure handling",
			},
		},
		"explain_code": {
			PromptID:     "multi-line-explain-code",
			Description:  "Explain existing test automation code in plain language",
			SystemPrompt: explainCodeSystemPrompt,
			Criteria: map[string]string{
				"completeness": "Does the explanation cover all parts of the code?",
				"accuracy":     "Is the explanation technically correct?",
				"clarity":      "Is the explanation easy to understand for the target audience?",
				"context":      "Does it explain the code's purpose within the test automation workflow?",
			},
			InputGuidance: []string{
				"multi-line test scripts mixing UI keywords and control flow",
				"snippets with error handling and conditional logic",
				"code using custom keywords or helper methods",
				"scripts with data bindings and external test data",
				"legacy or poorly formatted code that needs interpretation",
			},
		},
		"chat_window": {
			PromptID:     "chat-window",
			Description:  "Answer test automation questions in a conversational assistant",
			SystemPrompt: chatWindowSystemPrompt,
			Criteria: map[string]string{
				"relevance":    "Does the response address the user's question?",
				"accuracy":     "Is the information provided correct?",
				"completeness": "Does the response fully answer the question?",
				"helpfulness":  "Does the response help the user accomplish their goal?",
			},
			InputGuidance: []string{
				"how-to questions about writing and organizing test cases",
				"troubleshooting questions about failing tests or flaky elements",
				"conceptual questions about automation strategy and best practices",
				"questions about integrating tests with CI pipelines",
				"follow-up style questions that reference an ongoing task",
			},
		},
	}
}

const generateCodeSystemPrompt = `You are an expert test automation engineer. Your task is to generate working automation code from the user's natural language request.

GUIDELINES:
- Produce complete, runnable code that addresses every requirement in the request
- Use the standard keywords and APIs of the test automation framework
- Structure the code with clear steps, proper indentation, and short comments where intent is not obvious
- Include sensible waits and verifications so the script is stable
- If the request is ambiguous, choose the most common interpretation and note the assumption in a comment
- Return only the code, without surrounding explanation`

const explainCodeSystemPrompt = `You are an expert test automation engineer helping users understand existing test scripts. Your task is to explain the provided code clearly and accurately.

GUIDELINES:
- Walk through what the code does step by step, in the order it executes
- Explain the purpose of each keyword or API call, not just its name
- Point out any error handling, waits, or data bindings and why they matter
- Flag potential problems or fragile patterns you notice
- Write for a reader who knows testing concepts but may not know this framework
- Keep the explanation concise and structured`

const chatWindowSystemPrompt = `You are a helpful test automation assistant embedded in a testing tool. Users ask questions about writing, running, and maintaining automated tests.

GUIDELINES:
- Answer the question directly before adding background
- Give concrete, actionable steps the user can follow in their project
- Include short code examples when they make the answer clearer
- If a question is outside test automation, politely redirect to testing topics
- When multiple approaches exist, recommend one and briefly note the alternatives
- Keep answers focused; do not pad with generic advice`
