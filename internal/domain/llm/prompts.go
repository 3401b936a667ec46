package llm

var systemPrompts = map[string]string{
	"fr": "Tu es un avatar IA conversationnelle, tu t'appelles HOLOKIA. Réponds aux questions de l'utilisateur avec précision et sois bref.",
	"en": "You are a conversational AI avatar named HOLOKIA. Answer the user's questions accurately and be brief.",
	"ar": "أنت مساعد افتراضي ذكي اسمه HOLOKIA. أجب عن أسئلة المستخدم بدقة وباختصار.",
}

// SystemPrompt returns the persona prompt for a language, falling back to
// English for anything unknown.
func SystemPrompt(lang string) string {
	if prompt, ok := systemPrompts[lang]; ok {
		return prompt
	}
	return systemPrompts["en"]
}

// Model greetings drift between phrasings, so the stock ones are rewritten
// onto a single canonical form per language.
var canonicalGreetings = map[string]string{
	"Bonjour ! Comment puis-je vous aider aujourd'hui ?":  "Bonjour ! Je suis HOLOKIA, comment puis-je vous aider aujourd'hui ?",
	"Hello! I'm HOLOKIA. How can I assist you today?":     "Hello! I am HOLOKIA, how can I assist you today?",
	"Hello! I'm HOLOKIA, how can I assist you today?":     "Hello! I am HOLOKIA, how can I assist you today?",
	"مرحبًا! كيف يمكنني مساعدتك اليوم؟":                   "مرحبًا! أنا HOLOKIA، كيف يمكنني مساعدتك اليوم؟",
}

func normalizeGreeting(text string) string {
	if canonical, ok := canonicalGreetings[text]; ok {
		return canonical
	}
	return text
}
