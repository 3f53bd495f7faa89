package safety

// Indicator names of the default emergency matchers.
const (
	IndicatorChestPain         = "chest-pain"
	IndicatorShortnessOfBreath = "shortness-of-breath"
	IndicatorBreathing         = "breathing-difficulty"
	IndicatorSevereHeadache    = "severe-headache"
	IndicatorFainting          = "fainting"
	IndicatorBleeding          = "bleeding"
	IndicatorSuicidal          = "suicidal"
	IndicatorSeizure           = "seizure"
)

// DefaultMatchers returns the fixed, ordered set of emergency indicators.
//
// Matching is literal: there is no stemming or synonym expansion, so
// paraphrased distress ("my heart is pounding and I'm scared") is not
// guaranteed to be caught.
func DefaultMatchers() []Matcher {
	return []Matcher{
		MustPhraseMatcher(IndicatorChestPain, `chest pain`),
		MustPhraseMatcher(IndicatorShortnessOfBreath, `shortness of breath`),
		MustPhraseMatcher(IndicatorBreathing, `difficulty breathing|can['’]?t breathe|cannot breathe`),
		MustPhraseMatcher(IndicatorSevereHeadache, `severe headache`),
		MustPhraseMatcher(IndicatorFainting, `\bfaint`),
		MustPhraseMatcher(IndicatorBleeding, `bleeding`),
		MustPhraseMatcher(IndicatorSuicidal, `suicidal`),
		MustPhraseMatcher(IndicatorSeizure, `seizure`),
	}
}
