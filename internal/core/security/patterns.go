package security

// Built-in pattern sets and the business vocabulary. All of these are
// English-only and hand-curated; deployments can extend them through the
// security config section. They are compiled once at construction and
// never mutated afterwards.

var defaultInjectionPatterns = []string{
	`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions|prompts|rules)`,
	`(?i)disregard\s+(all\s+)?(previous|prior|your)\s+(instructions|prompts|rules|guidelines)`,
	`(?i)forget\s+(everything|all|your)\s+(instructions|rules|training)`,
	`(?i)(show|reveal|print|repeat|display)\s+(me\s+)?(your|the)\s+(system\s+)?(prompt|instructions)`,
	`(?i)you\s+are\s+(now|no\s+longer)\s+(a|an|the)?\s*\w*\s*(assistant|bot|ai|agent)`,
	`(?i)pretend\s+(to\s+be|you\s+are)`,
	`(?i)act\s+as\s+(if\s+you\s+are\s+)?(a|an)\s`,
	`(?i)roleplay\s+as`,
	`(?i)jailbreak`,
	`(?i)\bDAN\s+mode\b`,
	`(?i)developer\s+mode\s+(enabled|on)`,
	`(?i)override\s+(your\s+)?(safety|security|system)\s+(settings|rules|protocols)`,
	`(?i)new\s+instructions\s*:`,
}

var defaultSuspiciousPatterns = []string{
	`(?i)<\s*script[\s>]`,
	`(?i)javascript\s*:`,
	`(?i)\bon(load|click|error)\s*=`,
	`(?i)(drop|truncate|delete)\s+table`,
	`(?i)union\s+select`,
	`(?i)insert\s+into\s+\w+\s+values`,
	`(?i)('|")\s*or\s+('|")?1('|")?\s*=\s*('|")?1`,
	`(?i)exec\s*\(\s*`,
	`(?i)eval\s*\(\s*`,
	`(?i)\.\./\.\./`,
	`(?i)(what|which)\s+(database|db|framework|stack|server)\s+(do\s+you|are\s+you)\s+(use|using|run|running)`,
	`(?i)(show|list)\s+(me\s+)?(your|the)\s+(tables|schema|environment\s+variables|env\s+vars|api\s+keys?)`,
}

// defaultVocabulary is the business-domain keyword list used by the
// topical-relevance score for inputs and outputs.
var defaultVocabulary = []string{
	"price", "prices", "pricing", "cost", "costs", "fee", "fees", "rate",
	"quote", "payment", "pay", "invoice", "discount", "refund",
	"hours", "open", "opening", "closed", "closing", "schedule", "time",
	"available", "availability", "appointment", "booking", "book", "reserve",
	"reservation", "cancel", "cancellation", "reschedule",
	"service", "services", "product", "products", "offer", "offers",
	"package", "packages", "plan", "plans", "option", "options",
	"location", "address", "directions", "parking", "phone", "email",
	"contact", "website", "delivery", "shipping", "pickup", "order",
	"support", "help", "question", "info", "information", "details",
	"policy", "policies", "warranty", "guarantee", "return", "returns",
	"staff", "team", "business", "company", "customer", "client",
}

// Output screening: literal self-referential phrasings that leak the
// system role, and the substitution applied when one is found. Rewriting
// keeps the reply coherent instead of punching holes in it. Longer
// phrases come first so they win over their own substrings.
type substitution struct {
	phrase      string
	replacement string
}

var leakSubstitutions = []substitution{
	{"i am an ai language model", "I am a virtual assistant"},
	{"as an ai language model", "as a virtual assistant"},
	{"according to my prompt", "as far as I know"},
	{"my instructions say", "I understand"},
	{"i was programmed to", "I am here to"},
	{"my system prompt", "my purpose"},
	{"the system prompt", "the configuration"},
	{"my training data", "my knowledge"},
	{"my instructions", "my purpose"},
}

var unsafeTopicPhrases = []string{
	"how to make a weapon",
	"how to hack",
	"illegal drugs",
	"self-harm",
	"suicide method",
	"violence against",
}

const unsafeTopicSubstitution = "I can only help with questions about our business."
