package generation

import (
	"fmt"
	"strings"

	"github.com/daikw/agora/internal/persona"
	"github.com/daikw/agora/internal/transcript"
)

func opinionPrompt(p persona.Persona, topic, history string, addressed bool) string {
	var b strings.Builder
	b.WriteString("Context: You are participating in a philosophical debate via a web interface.\n")
	if history != "" {
		fmt.Fprintf(&b, "Previous Discussion Summary: %q\n", history)
	}
	fmt.Fprintf(&b, "\nCurrent Topic/Question: %q\n\n", topic)
	fmt.Fprintf(&b, "System Instruction: %s\n", p.Style)
	if addressed {
		b.WriteString("IMPORTANT: The user has specifically addressed YOU. Acknowledge this direct request. Be more personal.\n")
	}
	b.WriteString("\nTask: Provide your opinion on the current topic.\n")
	b.WriteString("Constraint: Keep it under 50 words. Be distinct and true to your character.\n")
	return b.String()
}

func quotedLines(utterances []transcript.Utterance) string {
	lines := make([]string, 0, len(utterances))
	for _, u := range utterances {
		lines = append(lines, fmt.Sprintf("%s: %q", u.SenderName, u.Text))
	}
	return strings.Join(lines, "\n")
}

func debatePrompt(opinions []transcript.Utterance) string {
	return fmt.Sprintf(`You are the scribe of the Agora.

The following philosophers have given their initial opinions on a topic:
%s

Task: Generate a short, intense debate round (2-3 exchanges).
The philosophers should read each other's opinions and critique/support them based on their own distinct philosophies.

Format your response as a JSON array of objects with 'speaker' (name) and 'text' (content).
Example: [{"speaker": "Socrates", "text": "But Nietzsche, does power truly equal virtue?"}, ...]

Constraint: Keep each response concise (under 40 words). Ensure at least 3 different philosophers speak in this round.
`, quotedLines(opinions))
}

func summaryPrompt(topic string, utterances []transcript.Utterance) string {
	return fmt.Sprintf(`Context: A philosophical debate on %q has just concluded.
Transcript:
%s

Task: Provide a VERY concise, neutral summary of the core conflict.
Constraint: Maximum 2 sentences. No fluff.

Output: Plain text.
`, topic, quotedLines(utterances))
}

func verdictPrompt(topic, summary, forcedName string) string {
	speaker := "Randomly select one of the participating philosophers to have the final word."
	if forcedName != "" {
		speaker = fmt.Sprintf("You MUST act as %s.", forcedName)
	}
	return fmt.Sprintf(`Context: A debate on %q has concluded.
Summary of arguments: %q

Task:
1. %s
2. Read the summary of the debate.
3. Provide a final, wise VERDICT and ADVICE to the user regarding their original query: %q.

Constraints:
- Keep the verdict CONCISE (Maximum 50 words / 3 sentences).
- This will be spoken aloud, so avoid complex lists.
- The tone should be authoritative, helpful, and conclusive.

Output Format: JSON object with 'speaker' and 'text'.
`, topic, summary, speaker, topic)
}

func personaPrompt(name, userContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: Create a detailed persona for a philosopher or thinker named %q.\n", name)
	if userContext != "" {
		fmt.Fprintf(&b, "Context provided by user: %q\n", userContext)
	}
	b.WriteString(`
Return a JSON object matching this structure:
{
  "name": "Corrected Name",
  "quote": "A famous or representative quote (max 15 words)",
  "archetype": "A 1-2 word archetype describing their role (e.g. 'The Mystic', 'The Realist')",
  "bio": "A very short biography (max 20 words)",
  "style": "Instructions for an AI on how to roleplay this person. Include tone, vocabulary, and philosophical focus. (max 40 words)",
  "gender": "male" or "female" (for voice selection)
}
`)
	return b.String()
}
