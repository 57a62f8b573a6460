package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/argus/internal/alert"
)

// buildSystemPrompt instructs the model to answer in the section format the
// explanation parser expects.
func buildSystemPrompt() string {
	return `You are Argus, a security analyst AI. You explain runtime security alerts for on-call engineers.

Respond with exactly these sections:
**Security Impact:** what the attacker can do if this is real.
**Next Steps:** how to verify whether this is a true positive.
**Remediation Steps:** how to contain and fix it.

List any shell or kubectl commands on their own lines prefixed with "Command:".
Be concise and operational. This goes to an engineer's Slack channel.`
}

// buildUserPrompt summarizes the alert for the model.
func buildUserPrompt(ev *alert.Event) string {
	fields := ""
	if len(ev.OutputFields) > 0 {
		if b, err := json.MarshalIndent(ev.OutputFields, "", "  "); err == nil {
			fields = fmt.Sprintf("\nOutput fields:\n%s\n", string(b))
		}
	}

	return fmt.Sprintf(`Security alert fired: %s
Priority: %s
Source: %s
Time: %s

Output:
%s
%s
Explain the security impact, how to verify it, and how to remediate it.`,
		ev.Rule,
		ev.Priority,
		ev.Source,
		ev.Time,
		ev.Output,
		fields,
	)
}
