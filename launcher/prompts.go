package launcher

import "strings"

// SystemPrompt is prepended to every question in the batch.
const SystemPrompt = "You are a helpful, knowledgeable AI assistant. " +
	"Answer as clearly and concisely as possible. "

// StopSequence ends a Llama 3 turn.
const StopSequence = "<|eot_id|>"

// chatTemplate is the Llama 3 instruct format with {system_prompt} and {user_prompt} slots.
const chatTemplate = "<|begin_of_text|><|start_header_id|>system<|end_header_id|>\n" +
	"{system_prompt}<|eot_id|>\n" +
	"<|start_header_id|>user<|end_header_id|>\n" +
	"{user_prompt}<|eot_id|>\n" +
	"<|start_header_id|>assistant<|end_header_id|>\n"

var questions = []string{
	"What is photosynthesis?",
	"Who wrote 'Romeo and Juliet'?",
	"What is the capital of Japan?",
	"Define gravity.",
	"What is the largest planet in our solar system?",
	"Who painted the Mona Lisa?",
	"What does DNA stand for?",
	"How many continents are there?",
	"What is the boiling point of water?",
	"Who invented the telephone?",
	"What is the main ingredient in bread?",
	"What year did World War II end?",
	"What is the smallest prime number?",
	"Who was the first person on the moon?",
	"What is the chemical symbol for gold?",
	"What is the freezing point of water?",
	"Who is the author of 'Harry Potter'?",
	"What is the tallest mountain in the world?",
	"What is the square root of 64?",
	"What language is spoken in Brazil?",
	"What is the currency of the United Kingdom?",
	"Who discovered penicillin?",
	"What is the fastest land animal?",
	"What gas do plants absorb from the air?",
	"How many sides does a hexagon have?",
	"What is the largest ocean on Earth?",
	"Who is known as the 'Father of Computers'?",
	"What is the hardest natural substance?",
	"What is the main function of the lungs?",
	"What planet is known as the Red Planet?",
	"Who wrote 'The Odyssey'?",
	"What is the process by which water changes from liquid to gas?",
}

// Questions returns a copy of the fixed question list.
func Questions() []string {
	out := make([]string, len(questions))
	copy(out, questions)
	return out
}

// FormatPrompt wraps one user question in the chat template.
// Slots are filled in a single pass so braces inside either prompt are left alone.
func FormatPrompt(systemPrompt, userPrompt string) string {
	r := strings.NewReplacer(
		"{system_prompt}", systemPrompt,
		"{user_prompt}", userPrompt,
	)
	return r.Replace(chatTemplate)
}

// FormatPrompts returns the full batch, one formatted prompt per question, in order.
func FormatPrompts() []string {
	out := make([]string, len(questions))
	for i, q := range questions {
		out[i] = FormatPrompt(SystemPrompt, q)
	}
	return out
}
