package gemini

import "fmt"

// promptTemplate pairs the assistant persona with the per-purpose
// instruction. Wording mirrors the product voice: Spanish, concise, light
// on emoji.
type promptTemplate struct {
	system      string
	instruction string // fmt template receiving the user message or context
}

var promptTemplates = map[string]promptTemplate{
	PurposeInfo: {
		system:      "Eres un asistente amigable y profesional de ProveIA, un sistema que ayuda a encontrar proveedores en México. Responde de manera concisa y amable sobre la cobertura del servicio.",
		instruction: "El usuario pregunta: %q\n\nExplica que ProveIA tiene cobertura en todo México, menciona algunas ciudades principales de manera natural y pregunta en qué ciudad específica necesita buscar. Usa emojis relevantes pero con moderación. Máximo 150 palabras.",
	},
	PurposeAskLocation: {
		system:      "Eres un asistente conversacional de ProveIA. Haz preguntas naturales y amigables.",
		instruction: "El usuario busca: %q\n\nNecesitas preguntarle en qué ubicación quiere buscar. Sé breve y natural. Máximo 30 palabras.",
	},
	PurposeAskRadius: {
		system:      "Eres un asistente conversacional de ProveIA. Haz preguntas naturales y amigables.",
		instruction: "El usuario busca: %q\n\nNecesitas preguntarle a qué distancia quiere buscar. Sé breve y natural. Máximo 30 palabras.",
	},
	PurposeResults: {
		system:      "Eres un asistente de ProveIA que presenta resultados de búsqueda de manera profesional y amigable.",
		instruction: "Contexto: %s\n\nPresenté los resultados de búsqueda. Genera un mensaje breve (máximo 50 palabras) que:\n- Confirme qué se encontró\n- Mencione que están ordenados por relevancia\n- Sea profesional pero amigable\n- Use 1-2 emojis relevantes",
	},
	PurposeNoResults: {
		system:      "Eres un asistente empático de ProveIA que ayuda cuando no hay resultados.",
		instruction: "Contexto: %s\n\nNo se encontraron resultados. Genera un mensaje breve (máximo 40 palabras) que:\n- Sea empático\n- Sugiera ampliar el radio o intentar otra categoría\n- Mantenga un tono positivo\n- Use 1 emoji relevante",
	},
	PurposeError: {
		system:      "Eres un asistente empático de ProveIA que maneja errores con profesionalismo.",
		instruction: "Error técnico: %s\n\nGenera un mensaje de error amigable (máximo 30 palabras) que:\n- Sea empático\n- Pida al usuario intentar de nuevo\n- No mencione detalles técnicos\n- Use 1 emoji apropiado",
	},
}

// buildPrompt assembles the full prompt text for a purpose. Question-style
// purposes interpolate the user message; result/error purposes interpolate
// the pipeline context string.
func buildPrompt(purpose, userMessage, contextInfo string) string {
	tpl, ok := promptTemplates[purpose]
	if !ok {
		return userMessage
	}
	arg := userMessage
	switch purpose {
	case PurposeResults, PurposeNoResults, PurposeError:
		arg = contextInfo
	}
	return tpl.system + "\n\n" + fmt.Sprintf(tpl.instruction, arg)
}

// fallbackMessage returns the canned message for a purpose, used whenever
// generation fails. Never empty.
func fallbackMessage(purpose string) string {
	switch purpose {
	case PurposeInfo:
		return "📍 Tengo información de proveedores en todo México. ¿En qué ciudad específica necesitas buscar?"
	case PurposeAskLocation:
		return "📍 ¿En qué ubicación quieres buscar proveedores?"
	case PurposeAskRadius:
		return "📏 ¿A qué distancia quieres buscar?"
	case PurposeResults:
		return "✅ Aquí están los resultados encontrados, ordenados por relevancia."
	case PurposeNoResults:
		return "😔 No encontré resultados. Intenta ampliar el radio de búsqueda."
	case PurposeError:
		return "❌ Ocurrió un error. Por favor intenta de nuevo."
	default:
		return "Procesando tu solicitud..."
	}
}
