package tool

import "strings"

// getRecommendation is a deterministic template, no external calls.
func (r *Registry) getRecommendation(outOfStock []string) string {
	names := make([]string, 0, len(outOfStock))
	for _, n := range outOfStock {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return "Todo lo que pediste esta disponible 😊"
	}
	return "Por ahora " + joinSpanish(names) + " esta agotado, pero puedo sugerirte otras opciones populares de la carta 😊"
}

func joinSpanish(names []string) string {
	switch len(names) {
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " y " + names[len(names)-1]
	}
}
