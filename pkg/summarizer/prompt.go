package summarizer

const systemPrompt = "You are a helpful security expert assistant."

func buildHumanPrompt(depsJSON string) string {
	return `You are a security expert assistant. Your task is to analyze a list of vulnerable Python dependencies found by a dependency audit and provide a clear, concise, and actionable summary for a developer.

Each entry has the package name, the currently installed version, the number of known vulnerabilities, the highest version that fixes them ("Not available" when no fix is published) and an example vulnerability description.

Here are the vulnerable dependencies:
` + "```json\n" + depsJSON + "\n```" + `

Please provide a response in Markdown format with the following sections:

### Executive Summary
A brief, one-paragraph summary of the findings. Mention the number of vulnerabilities and the number of affected packages.

### Vulnerability Details
For each package, provide:
- **Package:** The name and installed version of the vulnerable package.
- **Impact:** A simple, one-sentence explanation of the potential risk.
- **Recommendation:** The specific action to take, like "Upgrade to version ` + "`X.Y.Z`" + ` or higher."

### Overall Recommendation
Provide a final, clear recommendation on the next steps. For example, suggest updating the requirements file with the fixed versions.
`
}
