package recommend

import (
	"strings"

	"github.com/AngelCh415/adbrain/internal/models"
)

// phrasings holds one template per persona and action type. Placeholders:
// {entity} {target} {impact} {delta}.
var phrasings = map[models.Persona]map[models.ActionType]string{
	models.PersonaExecutive: {
		models.ActionPauseCreative:  "A tired creative ({entity}) is costing about {impact}. Rotating it out protects spend.",
		models.ActionShiftBudget:    "Moving budget from {entity} to {target} is worth about {impact}.",
		models.ActionIncreaseBudget: "{entity} is our best performer. Scaling it adds about {impact}.",
		models.ActionFocusRetention: "Recent customers are worth less ({delta}). Retention work recovers about {impact}.",
	},
	models.PersonaAnalyst: {
		models.ActionPauseCreative:  "Creative {entity}: {delta}. Estimated waste {impact}.",
		models.ActionShiftBudget:    "Channel {entity}: {delta}. Reallocating to {target} yields {impact}.",
		models.ActionIncreaseBudget: "Channel {entity}: {delta}. Scale step yields {impact} after diminishing returns.",
		models.ActionFocusRetention: "Cohort {entity}: {delta}. Half-recovery scenario {impact}.",
	},
	models.PersonaOperator: {
		models.ActionPauseCreative:  "Pause {entity} today and launch a fresh variant in the same ad set.",
		models.ActionShiftBudget:    "Cut {entity} daily budget and move it to {target}; review in 7 days.",
		models.ActionIncreaseBudget: "Raise {entity} budget one step and watch ROAS for 3 days.",
		models.ActionFocusRetention: "Launch a win-back flow for the {entity} cohort.",
	},
}

var personaOrder = []models.Persona{models.PersonaExecutive, models.PersonaAnalyst, models.PersonaOperator}

type phraseVars struct {
	entity, target, impact, delta string
}

// phrase renders the template for one persona; "" when none exists.
func phrase(p models.Persona, t models.ActionType, v phraseVars) string {
	tpl, ok := phrasings[p][t]
	if !ok {
		return ""
	}
	return strings.NewReplacer(
		"{entity}", v.entity,
		"{target}", v.target,
		"{impact}", v.impact,
		"{delta}", v.delta,
	).Replace(tpl)
}

func personas(t models.ActionType, v phraseVars) map[models.Persona]string {
	out := make(map[models.Persona]string, len(personaOrder))
	for _, p := range personaOrder {
		if s := phrase(p, t, v); s != "" {
			out[p] = s
		}
	}
	return out
}
