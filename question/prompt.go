package question

import (
	"fmt"
	"strings"
)

func formatSystemPrompt(tpl, lang string) string {
	if tpl == "" {
		tpl = DefaultSystemPrompt
	}
	if lang == "" {
		lang = "English"
	}
	if strings.Contains(tpl, "%s") {
		return fmt.Sprintf(tpl, lang)
	}
	return tpl
}
