package domain

// TopicRule maps trigger keywords to the documents that usually answer them.
// Keywords are matched as lowercase substrings of the question.
type TopicRule struct {
	Name      string   `json:"name"`
	Keywords  []string `json:"keywords"`
	Documents []string `json:"documents"`
}

// TopicRules is the static routing table, read-only after start
type TopicRules struct {
	Rules []TopicRule `json:"rules"`

	// LegalPattern detects definition/legal questions (RE2 syntax)
	LegalPattern string `json:"legal_pattern"`

	// Baseline documents are added whenever LegalPattern matches
	Baseline []string `json:"baseline"`
}

// Document ids of the bundled corpus. They are cited verbatim in answers,
// so none contains a markup character.
const (
	DocHousingLaw        = "zakon-o-zhilishchnykh-otnosheniyakh"
	DocCommonProperty    = "pravila-soderzhaniya-obshchego-imushchestva"
	DocOwnersAssociation = "pravila-osi"
	DocCapitalRepair     = "st-rk-kapitalnyi-remont"
	DocCurrentRepair     = "st-rk-tekushchii-remont"
	DocWasteRemoval      = "st-rk-vyvoz-tbo"
	DocHeating           = "st-rk-teplosnabzhenie"
	DocElevators         = "st-rk-lifty"
)

// DefaultLegalPattern matches duty, right, law, standard, definition and
// "means" in Russian, Kazakh and English. RE2 word boundaries are ASCII
// only, so Cyrillic stems are matched as plain substrings.
const DefaultLegalPattern = `(?i)(обязан|право|права|закон|стандарт|норматив|определени|что такое|что значит|означает|понятие|міндет|құқ|заң|анықтама|дегеніміз|деген не|\bduty\b|\bright\b|\blaw\b|\bstandard\b|\bdefinition\b|\bmeans\b)`

// DefaultTopicRules returns the routing table for the bundled corpus
func DefaultTopicRules() TopicRules {
	return TopicRules{
		Rules: []TopicRule{
			{
				Name:      "capital_repair",
				Keywords:  []string{"капитальн", "капремонт", "күрделі жөндеу"},
				Documents: []string{DocCapitalRepair, DocCommonProperty},
			},
			{
				Name:      "current_repair",
				Keywords:  []string{"текущий ремонт", "текущего ремонта", "текущем ремонте", "ағымдағы жөндеу"},
				Documents: []string{DocCurrentRepair, DocCommonProperty},
			},
			{
				Name:      "waste",
				Keywords:  []string{"мусор", "тбо", "отход", "қоқыс", "қалдық"},
				Documents: []string{DocWasteRemoval},
			},
			{
				Name:      "heating",
				Keywords:  []string{"отоплен", "теплоснабж", "батаре", "жылыту", "жылумен"},
				Documents: []string{DocHeating},
			},
			{
				Name:      "elevators",
				Keywords:  []string{"лифт"},
				Documents: []string{DocElevators, DocCommonProperty},
			},
			{
				Name:      "owners_association",
				Keywords:  []string{" оси", "объединени", "председател", "собрани", "взнос", " пиб", "төраға", "жиналыс"},
				Documents: []string{DocOwnersAssociation, DocHousingLaw},
			},
			{
				Name:      "common_property",
				Keywords:  []string{"общее имущество", "общего имущества", "подъезд", "подвал", "крыш", "ортақ мүлік"},
				Documents: []string{DocCommonProperty},
			},
		},
		LegalPattern: DefaultLegalPattern,
		Baseline:     []string{DocHousingLaw},
	}
}
