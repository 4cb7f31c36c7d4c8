package domain

type Tier string

const (
	TierRed          Tier = "red"
	TierOrange       Tier = "orange"
	TierGreen        Tier = "green"
	TierUnclassified Tier = "unclassified"
)

func (t Tier) Valid() bool {
	switch t {
	case TierRed, TierOrange, TierGreen:
		return true
	}
	return false
}

// Level returns the outward tag for the tier.
func (t Tier) Level() Level {
	switch t {
	case TierRed:
		return LevelRed
	case TierOrange:
		return LevelOrange
	case TierGreen:
		return LevelGreen
	default:
		return LevelInfo
	}
}

// Level is the severity tag carried by every response.
type Level string

const (
	LevelRed    Level = "rouge"
	LevelOrange Level = "orange"
	LevelGreen  Level = "vert"
	LevelInfo   Level = "info"
)

type SymptomEntry struct {
	ID                string   `yaml:"id" json:"id"`
	DisplayName       string   `yaml:"name" json:"display_name"`
	Keywords          []string `yaml:"keywords" json:"keywords"`
	Specialty         string   `yaml:"specialty" json:"specialty"`
	Tier              Tier     `yaml:"tier" json:"tier"`
	UrgencyRank       int      `yaml:"rank" json:"urgency_rank"`
	FollowUpQuestions []string `yaml:"questions" json:"follow_up_questions,omitempty"`
	Advice            string   `yaml:"advice" json:"advice"`
}

// Clone returns a copy that shares no slices with e.
func (e SymptomEntry) Clone() SymptomEntry {
	e.Keywords = append([]string(nil), e.Keywords...)
	e.FollowUpQuestions = append([]string(nil), e.FollowUpQuestions...)
	return e
}

// Match is a copy of a knowledge base entry together with the keywords found
// in the input.
type Match struct {
	Entry   SymptomEntry
	Matched []string
	Order   int
}

func (m Match) Count() int {
	return len(m.Matched)
}

type TriageResult struct {
	Matches         []Match
	IsEmergency     bool
	EmergencyGroups []string
	Tier            Tier
}

// Confident reports whether the top match can drive the answer on its own.
func (r TriageResult) Confident() bool {
	return !r.IsEmergency && len(r.Matches) > 0 && r.Matches[0].Count() >= 1
}

// Top returns the highest ranked match, if any.
func (r TriageResult) Top() (Match, bool) {
	if len(r.Matches) == 0 {
		return Match{}, false
	}
	return r.Matches[0], true
}

// Response is the payload returned to the patient-facing channel.
type Response struct {
	Message string `json:"message"`
	Level   Level  `json:"level"`
}
