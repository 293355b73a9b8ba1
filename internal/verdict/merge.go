// Package verdict merges the lexical match, the AI classifier's verdict and
// enrichment data into one classification per listing, and obtains AI
// verdicts from the Anthropic API.
package verdict

import (
	"github.com/sells-group/prospect-cli/internal/model"
)

// AIConfidence is the confidence assigned when the AI verdict decides the
// status on its own.
const AIConfidence = 80

const aiTag = "[AI] "

// Merge resolves the final classification of one listing. It returns nil
// when there is neither a lexical result nor a usable AI verdict.
//
// Precedence: an "irrelevant" verdict discards; a "prospect" verdict makes
// the listing relevant unless the lexical result is a hard exclusion, which
// no verdict can lift; an "uncertain" verdict annotates the lexical result.
// Enrichment never changes the status and is attached as is.
func Merge(lex *model.LexicalMatch, ai *model.AIVerdict, enr *model.EnrichmentRecord) *model.MergedClassification {
	if ai != nil && !ai.Verdict.Valid() {
		ai = nil
	}
	if lex == nil && ai == nil {
		return nil
	}

	out := &model.MergedClassification{
		Lexical:    lex,
		AI:         ai,
		Enrichment: enr,
	}

	if ai == nil {
		out.Status = lex.Status
		out.Confidence = lex.Confidence
		out.Reason = lex.Reason
		return out
	}

	if lex == nil {
		out.Status = synthesized(ai.Verdict)
		out.Confidence = AIConfidence
		out.Reason = aiTag + ai.Reason
		return out
	}

	switch ai.Verdict {
	case model.VerdictIrrelevant:
		out.Status = model.StatusDiscard
		out.Confidence = agreeing(lex, model.StatusDiscard)
		out.Reason = aiTag + ai.Reason
	case model.VerdictProspect:
		if lex.HardExcluded {
			out.Status = model.StatusDiscard
			out.Confidence = lex.Confidence
			out.Reason = lex.Reason + "; AI suggested prospect (" + ai.Reason + ") but hard exclusion applies"
			return out
		}
		out.Status = model.StatusRelevant
		out.Confidence = agreeing(lex, model.StatusRelevant)
		out.Reason = aiTag + ai.Reason
	default:
		out.Status = lex.Status
		out.Confidence = lex.Confidence
		out.Reason = lex.Reason + " (AI uncertain: " + ai.Reason + ")"
	}
	return out
}

func synthesized(v model.Verdict) model.Status {
	switch v {
	case model.VerdictProspect:
		return model.StatusRelevant
	case model.VerdictIrrelevant:
		return model.StatusDiscard
	default:
		return model.StatusNeutral
	}
}

// agreeing keeps the lexical confidence when it already reached the same
// status and is more certain than the AI default.
func agreeing(lex *model.LexicalMatch, status model.Status) int {
	if lex.Status == status {
		return max(lex.Confidence, AIConfidence)
	}
	return AIConfidence
}
