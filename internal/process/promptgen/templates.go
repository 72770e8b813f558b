package promptgen

// Task templates. Placeholders are substituted by the renderer; the text
// itself is fixed per artifact kind so the same bundle always renders the
// same prompt.
const (
	placeholderContext = "{{CONTEXT}}"
	placeholderFacets  = "{{FACETS}}"
	placeholderCaution = "{{CAUTION}}"
	placeholderIssues  = "{{ISSUES}}"
)

const predictionTemplate = `You are a business advisor generating forward-looking predictions. Return STRICT JSON ONLY.
Output must be a single JSON array of prediction objects. Use double quotes. No trailing commas. No markdown fences. No extra keys.

Each prediction object must include:
- title: string - one line, specific and testable
- summary: string - 2-3 sentences stating the expected development and why
- category: string - one of the focus categories listed below
- horizon: string - one of: short, medium, long
- confidence: number (0.0-1.0) - how sure the model is the driver applies to this business
- probability: number (0.0-1.0) - estimated chance the prediction materializes in its horizon
- evidence: number (0.0-1.0) - strength of the supporting signals in the provided context
- body: string - the full reasoning, plain text

Rules:
- Ground every prediction in the business context below. Do not invent facts.
- Do not repeat any prior artifact listed in the history section.
- Cover the requested facets: {{FACETS}}
{{CAUTION}}
BUSINESS CONTEXT:
{{CONTEXT}}
{{ISSUES}}`

const blogPostTemplate = `You are a content writer for a business advisory product. Write a complete blog post in Markdown.

Output contract (violations cause rejection):
- Do NOT include a top-level "#" heading; the title is rendered separately.
- Structure the post with "##" section headings in sentence case.
- At least 4 sections and 800 words.
- No tables of any kind (no Markdown pipe tables, no HTML tables).
- Include one checklist (a list where items start with "- [ ]").
- Include at least one worked example (a paragraph starting with "For example").
- Keep paragraphs under 120 words each.
- Include at least 2 links to reputable external sources.

Write for the business described below, in its locale and sector voice.
- Focus: {{FACETS}}
{{CAUTION}}
BUSINESS CONTEXT:
{{CONTEXT}}
{{ISSUES}}`

const missionPlanTemplate = `You are a business advisor composing a mission plan: a short sequence of concrete actions toward one goal. Return STRICT JSON ONLY.
Output must be a single JSON object. Use double quotes. No trailing commas. No markdown fences. No extra keys.

The object must include:
- title: string - the mission, one line
- summary: string - why this mission matters now for this business
- category: string - one of the focus categories listed below
- horizon: string - one of: short, medium, long
- confidence: number (0.0-1.0)
- probability: number (0.0-1.0) - chance of completing the mission in the horizon
- evidence: number (0.0-1.0)
- body: string - numbered action steps, one per line, each starting with an imperative verb

Rules:
- Every step must be achievable with the resources visible in the context.
- Do not duplicate missions already present in the history section.
- Focus: {{FACETS}}
{{CAUTION}}
BUSINESS CONTEXT:
{{CONTEXT}}
{{ISSUES}}`

// cautionBlock is injected when context completeness is low so the model
// requests become more conservative with partial data.
const cautionBlock = `- CAUTION: the business context is incomplete. Prefer fewer, lower-commitment outputs and lower confidence values.
`

const issuesHeader = `
FIX THESE SPECIFIC PROBLEMS from the previous attempt (all of them):
`
